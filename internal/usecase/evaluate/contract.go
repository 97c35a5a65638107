package evaluate

import (
	"context"

	"github.com/kailas-cloud/imgdex/internal/domain/index"
)

// Scorer returns the MaxSim score of every index record for one query.
type Scorer interface {
	Scores(ctx context.Context, idx *index.Index, query string) ([]float64, error)
}
