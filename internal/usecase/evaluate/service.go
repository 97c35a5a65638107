// Package evaluate calibrates score thresholds against a set of sample queries.
package evaluate

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/evaluation"
	"github.com/kailas-cloud/imgdex/internal/domain/index"
	"github.com/kailas-cloud/imgdex/internal/logger"
	"github.com/kailas-cloud/imgdex/internal/usecase/search"
)

// Service computes the average result yield of candidate thresholds.
type Service struct {
	scorer Scorer
	logger *zap.Logger
}

// New creates an evaluation service.
func New(scorer Scorer, logger *zap.Logger) *Service {
	return &Service{scorer: scorer, logger: logger}
}

// Evaluate returns, for each threshold in request order, the average number of
// results per query of an unbounded search at that threshold.
// Each query is embedded once; an embedding failure aborts the evaluation.
func (s *Service) Evaluate(
	ctx context.Context, idx *index.Index, queries []string, thresholds []float64,
) ([]evaluation.ThresholdStat, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: at least one query is required", domain.ErrInvalidRequest)
	}
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("%w: at least one threshold is required", domain.ErrInvalidRequest)
	}
	for _, th := range thresholds {
		if math.IsNaN(th) {
			return nil, fmt.Errorf("%w: threshold must not be NaN", domain.ErrInvalidRequest)
		}
	}

	totals := make([]int, len(thresholds))
	for _, q := range queries {
		if q == "" {
			return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidRequest)
		}
		scores, err := s.scorer.Scores(ctx, idx, q)
		if err != nil {
			return nil, fmt.Errorf("evaluate query %q: %w", q, err)
		}
		for i, th := range thresholds {
			totals[i] += search.CountAtLeast(scores, th)
		}
	}

	log := logger.FromContextOr(ctx, s.logger)
	stats := make([]evaluation.ThresholdStat, len(thresholds))
	for i, th := range thresholds {
		stats[i] = evaluation.NewThresholdStat(th, len(queries), totals[i])
		log.Info("Threshold evaluated",
			zap.Float64("threshold", th),
			zap.Int("queries", len(queries)),
			zap.Float64("average_results", stats[i].AverageResults),
		)
	}
	return stats, nil
}
