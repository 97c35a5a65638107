package collection

import (
	"context"

	"github.com/kailas-cloud/imgdex/internal/domain/evaluation"
	"github.com/kailas-cloud/imgdex/internal/domain/index"
	"github.com/kailas-cloud/imgdex/internal/domain/search/request"
	"github.com/kailas-cloud/imgdex/internal/domain/search/result"
	"github.com/kailas-cloud/imgdex/internal/usecase/builder"
)

// Store persists a whole index.
type Store interface {
	Load(ctx context.Context) (*index.Index, error)
	Save(ctx context.Context, idx *index.Index) error
}

// Builder produces a new index from an image directory.
type Builder interface {
	Build(ctx context.Context, dir string) (*index.Index, builder.Report, error)
}

// Searcher ranks one index against a query.
type Searcher interface {
	Search(ctx context.Context, idx *index.Index, req *request.Request) ([]result.Result, error)
}

// Evaluator calibrates thresholds on one index.
type Evaluator interface {
	Evaluate(
		ctx context.Context, idx *index.Index, queries []string, thresholds []float64,
	) ([]evaluation.ThresholdStat, error)
}
