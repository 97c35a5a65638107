// Package collection owns the currently published index and its lifecycle.
package collection

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/evaluation"
	"github.com/kailas-cloud/imgdex/internal/domain/index"
	"github.com/kailas-cloud/imgdex/internal/domain/search/request"
	"github.com/kailas-cloud/imgdex/internal/domain/search/result"
	"github.com/kailas-cloud/imgdex/internal/logger"
	"github.com/kailas-cloud/imgdex/internal/metrics"
	"github.com/kailas-cloud/imgdex/internal/usecase/builder"
)

// Info describes the published index.
type Info struct {
	Records   int
	Dimension int
	Model     string
	LoadedAt  time.Time // zero until an index is built or loaded
}

type snapshot struct {
	idx      *index.Index
	loadedAt time.Time
}

// Service publishes one immutable index at a time. Readers take a snapshot;
// Build and Load swap in a new value and never mutate the published one.
type Service struct {
	store     Store
	builder   Builder
	searcher  Searcher
	evaluator Evaluator
	model     string
	logger    *zap.Logger

	current atomic.Pointer[snapshot]
	buildMu sync.Mutex // serializes Build/Load, readers never block
}

// New creates a collection service. model is the configured embedding model;
// an empty model disables the provider check on load.
func New(
	store Store, b Builder, searcher Searcher, evaluator Evaluator,
	model string, logger *zap.Logger,
) *Service {
	s := &Service{
		store:     store,
		builder:   b,
		searcher:  searcher,
		evaluator: evaluator,
		model:     model,
		logger:    logger,
	}
	s.current.Store(&snapshot{idx: index.New(model)})
	return s
}

// Build indexes dir, persists the result when persist is set and publishes it.
// If saving fails the previous index stays published.
func (s *Service) Build(ctx context.Context, dir string, persist bool) (builder.Report, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	ctx = logger.With(ctx, s.logger, zap.String("op", "build"), zap.String("dir", dir))
	idx, report, err := s.builder.Build(ctx, dir)
	if err != nil {
		return report, fmt.Errorf("build index: %w", err)
	}
	if persist {
		if err := s.save(ctx, idx); err != nil {
			return report, err
		}
	}
	s.publish(ctx, idx)
	return report, nil
}

// Load reads the stored index, checks that it was built by the configured model and publishes it.
func (s *Service) Load(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	ctx = logger.With(ctx, s.logger, zap.String("op", "load"))
	idx, err := s.store.Load(ctx)
	if err != nil {
		metrics.IndexStoreOpsTotal.WithLabelValues("load", "error").Inc()
		return fmt.Errorf("load index: %w", err)
	}
	metrics.IndexStoreOpsTotal.WithLabelValues("load", "ok").Inc()

	if s.model != "" && idx.Model() != "" && idx.Model() != s.model {
		return fmt.Errorf("load index: %w", domain.NewProviderMismatch(idx.Model(), s.model))
	}
	s.publish(ctx, idx)
	return nil
}

// Save persists the published index.
func (s *Service) Save(ctx context.Context) error {
	return s.save(ctx, s.current.Load().idx)
}

// Search runs a query against the published index.
func (s *Service) Search(ctx context.Context, req *request.Request) ([]result.Result, error) {
	results, err := s.searcher.Search(ctx, s.current.Load().idx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

// Evaluate calibrates thresholds against the published index.
func (s *Service) Evaluate(
	ctx context.Context, queries []string, thresholds []float64,
) ([]evaluation.ThresholdStat, error) {
	stats, err := s.evaluator.Evaluate(ctx, s.current.Load().idx, queries, thresholds)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return stats, nil
}

// Info describes the published index.
func (s *Service) Info() Info {
	snap := s.current.Load()
	return Info{
		Records:   snap.idx.Len(),
		Dimension: snap.idx.Dimension(),
		Model:     snap.idx.Model(),
		LoadedAt:  snap.loadedAt,
	}
}

// Index returns the published index. Callers must not mutate it.
func (s *Service) Index() *index.Index {
	return s.current.Load().idx
}

func (s *Service) save(ctx context.Context, idx *index.Index) error {
	if err := s.store.Save(ctx, idx); err != nil {
		metrics.IndexStoreOpsTotal.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("save index: %w", err)
	}
	metrics.IndexStoreOpsTotal.WithLabelValues("save", "ok").Inc()
	return nil
}

func (s *Service) publish(ctx context.Context, idx *index.Index) {
	s.current.Store(&snapshot{idx: idx, loadedAt: time.Now()})
	metrics.IndexRecords.Set(float64(idx.Len()))
	logger.FromContextOr(ctx, s.logger).Info("Index published",
		zap.Int("records", idx.Len()),
		zap.Int("dimension", idx.Dimension()),
		zap.String("model", idx.Model()),
	)
}
