// Package search ranks index records against a text query with late-interaction (MaxSim) scoring.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/index"
	"github.com/kailas-cloud/imgdex/internal/domain/matrix"
	"github.com/kailas-cloud/imgdex/internal/domain/search/request"
	"github.com/kailas-cloud/imgdex/internal/domain/search/result"
	"github.com/kailas-cloud/imgdex/internal/metrics"
)

// Service is the query engine.
type Service struct {
	embed Embedder
}

// New creates a search service.
func New(embed Embedder) *Service {
	return &Service{embed: embed}
}

// Search embeds the query, scores every record and returns the ranked, thresholded top-k.
// A non-positive top-k or an empty index yields no results without calling the embedder.
func (s *Service) Search(
	ctx context.Context, idx *index.Index, req *request.Request,
) ([]result.Result, error) {
	if req.TopK() <= 0 || idx.Len() == 0 {
		return []result.Result{}, nil
	}

	start := time.Now()
	scores, err := s.Scores(ctx, idx, req.Query())
	if err != nil {
		return nil, err
	}

	results := rank(idx, scores, req.ScoreThreshold(), req.TopK())

	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchResults.Observe(float64(len(results)))
	return results, nil
}

// Scores embeds query once and returns the MaxSim score of every record, in index order.
func (s *Service) Scores(ctx context.Context, idx *index.Index, query string) ([]float64, error) {
	if idx.Len() == 0 {
		return nil, nil
	}

	emb, err := s.embed.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	q := emb.Matrix
	if q.IsZero() {
		return nil, fmt.Errorf("embed query: %w: empty query embedding", domain.ErrEmbeddingProviderError)
	}
	if q.Dim() != idx.Dimension() {
		return nil, fmt.Errorf("%w: query dim %d, index dim %d",
			domain.ErrVectorDimMismatch, q.Dim(), idx.Dimension())
	}

	return score(ctx, idx, q)
}

func score(ctx context.Context, idx *index.Index, q matrix.Matrix) ([]float64, error) {
	scores := make([]float64, idx.Len())
	for i := range scores {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec := idx.At(i)
		sc, err := matrix.MaxSim(q, rec.Embedding())
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", rec.SourcePath(), err)
		}
		scores[i] = sc
	}
	return scores, nil
}
