// Package imgdex indexes a directory of images with a late-interaction
// (multi-vector) embedding model and answers free-text queries with
// token-level MaxSim scoring.
//
// Every image becomes a matrix of token embeddings. A query is embedded the
// same way and each image is scored as the sum, over query tokens, of the best
// dot product with any image token. Results at or above a score threshold are
// returned best first.
//
//	emb := imgdex.NewOpenAIEmbedder(imgdex.OpenAIConfig{
//	    BaseURL:    "http://localhost:8000/v1",
//	    Model:      "colqwen2.5-v0.2",
//	    Dimensions: 128,
//	})
//	client, _ := imgdex.New(ctx, emb,
//	    imgdex.WithIndexFile("data/index.parquet"),
//	    imgdex.WithModel("colqwen2.5-v0.2"),
//	)
//	defer client.Close()
//
//	report, _ := client.Build(ctx, "photos/")
//	hits, _ := client.Search(ctx, "a red car", imgdex.WithTopK(5))
//
// The index is persisted as a Parquet blob in a file, a Redis/Valkey key or
// an S3 object. Thresholds can be calibrated offline with Evaluate.
package imgdex
