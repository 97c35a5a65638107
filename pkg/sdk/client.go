package imgdex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/imgdex/internal/db/redis"
	dbS3 "github.com/kailas-cloud/imgdex/internal/db/s3"
	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/evaluation"
	"github.com/kailas-cloud/imgdex/internal/domain/search/request"
	"github.com/kailas-cloud/imgdex/internal/domain/search/result"
	"github.com/kailas-cloud/imgdex/internal/repository/embcache"
	"github.com/kailas-cloud/imgdex/internal/repository/indexstore"
	"github.com/kailas-cloud/imgdex/internal/usecase/builder"
	collectionuc "github.com/kailas-cloud/imgdex/internal/usecase/collection"
	embeddinguc "github.com/kailas-cloud/imgdex/internal/usecase/embedding"
	evaluateuc "github.com/kailas-cloud/imgdex/internal/usecase/evaluate"
	healthuc "github.com/kailas-cloud/imgdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/imgdex/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "imgdex:"
	defaultIndexName        = "default"
	defaultObjectKey        = "index.parquet"
)

// indexUseCase is the collection service, swappable in tests.
type indexUseCase interface {
	Build(ctx context.Context, dir string, persist bool) (builder.Report, error)
	Load(ctx context.Context) error
	Save(ctx context.Context) error
	Search(ctx context.Context, req *request.Request) ([]result.Result, error)
	Evaluate(ctx context.Context, queries []string, thresholds []float64) ([]evaluation.ThresholdStat, error)
	Info() collectionuc.Info
}

// Client is the imgdex SDK entry point. It holds one published index and is
// safe for concurrent use: searches run against a snapshot while Build or Load
// swap in a new one.
type Client struct {
	indexSvc  indexUseCase
	healthSvc healthUseCase
	obs       *observer
	closers   []func()
}

// New creates a Client over an index store and an embedding provider.
// The provided context is used for readiness checks and WithLoadOnStart.
func New(ctx context.Context, embedder Embedder, opts ...Option) (*Client, error) {
	if embedder == nil {
		return nil, errors.New("imgdex: embedder required")
	}
	cfg := &clientConfig{
		keyPrefix: defaultKeyPrefix,
		indexName: defaultIndexName,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.backend == "" {
		return nil, errors.New("imgdex: index store required (use WithIndexFile, WithRedis, WithValkey or WithS3)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs}
	if err := c.wire(ctx, cfg, embedder); err != nil {
		c.Close()
		return nil, err
	}

	if cfg.loadOnStart {
		if err := c.Load(ctx); err != nil && !errors.Is(err, ErrNotFound) {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) wire(ctx context.Context, cfg *clientConfig, embedder Embedder) error {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store  collectionuc.Store
		pinger healthuc.DBPinger
		kv     *dbRedis.Store
	)
	switch cfg.backend {
	case "file":
		store = indexstore.NewFileStore(cfg.path)
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.addrs,
			Password:   cfg.password,
			Standalone: cfg.standalone,
		})
		if err != nil {
			return fmt.Errorf("imgdex: create %s store: %w", cfg.backend, err)
		}
		c.closers = append(c.closers, s.Close)
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			return fmt.Errorf("imgdex: %s not ready: %w", cfg.backend, err)
		}
		store = indexstore.NewBlobStore(s, indexstore.IndexKey(cfg.keyPrefix, cfg.indexName))
		pinger = s
		kv = s
	case "s3":
		s, err := dbS3.NewStore(dbS3.Config{
			Endpoint:        cfg.s3.Endpoint,
			AccessKeyID:     cfg.s3.AccessKeyID,
			SecretAccessKey: cfg.s3.SecretAccessKey,
			Bucket:          cfg.s3.Bucket,
			Region:          cfg.s3.Region,
			UseSSL:          cfg.s3.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("imgdex: create s3 store: %w", err)
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("imgdex: ensure bucket %s: %w", cfg.s3.Bucket, err)
		}
		key := cfg.s3.ObjectKey
		if key == "" {
			key = defaultObjectKey
		}
		store = indexstore.NewBlobStore(s, key)
		pinger = s
	default:
		return fmt.Errorf("imgdex: unknown backend %q", cfg.backend)
	}

	dimension := cfg.dimension
	if oe, ok := embedder.(*OpenAIEmbedder); ok && dimension <= 0 {
		dimension = oe.dimensions
	}

	emb := toDomainEmbedder(embedder)
	if cfg.cache && kv != nil {
		emb = embcache.New(emb, kv, embcache.Config{
			KeyPrefix: cfg.keyPrefix,
			Model:     cfg.model,
			TTL:       cfg.cacheTTL,
		}, nil, logger)
	}
	inst := embeddinguc.NewInstrumentedEmbedder(emb, "sdk", cfg.model, logger)

	searchSvc := searchuc.New(inst)
	collection := collectionuc.New(
		store,
		builder.New(inst, cfg.model, dimension, logger),
		searchSvc,
		evaluateuc.New(searchSvc, logger),
		cfg.model,
		logger,
	)
	c.indexSvc = collection
	c.healthSvc = healthuc.New(pinger, inst, func() healthuc.IndexCounter {
		return collection.Index()
	})
	return nil
}

// Close releases the store connection.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	persist bool
}

// WithoutSave publishes the built index without persisting it.
func WithoutSave() BuildOption {
	return func(c *buildConfig) { c.persist = false }
}

// Build embeds every supported image directly in dir, persists the new index
// and publishes it. Images that fail to embed are reported and skipped.
func (c *Client) Build(ctx context.Context, dir string, opts ...BuildOption) (report BuildReport, err error) {
	done := c.obs.begin("build", zap.String("dir", dir))
	defer func() { done(err, zap.Int("indexed", report.Indexed), zap.Int("skipped", report.Skipped)) }()

	bc := buildConfig{persist: true}
	for _, o := range opts {
		o(&bc)
	}

	r, err := c.indexSvc.Build(ctx, dir, bc.persist)
	if err != nil {
		return reportFromDomain(r), fmt.Errorf("imgdex: %w", err)
	}
	return reportFromDomain(r), nil
}

// Load reads the stored index and publishes it.
func (c *Client) Load(ctx context.Context) (err error) {
	done := c.obs.begin("load")
	defer func() { done(err) }()

	if err := c.indexSvc.Load(ctx); err != nil {
		return fmt.Errorf("imgdex: %w", err)
	}
	return nil
}

// Save persists the published index.
func (c *Client) Save(ctx context.Context) (err error) {
	done := c.obs.begin("save")
	defer func() { done(err) }()

	if err := c.indexSvc.Save(ctx); err != nil {
		return fmt.Errorf("imgdex: %w", err)
	}
	return nil
}

// SearchOption configures Search.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK      int
	threshold float64
}

// WithTopK limits the number of results. Default: 10. Zero or less yields no results.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) { c.topK = k }
}

// WithScoreThreshold drops images scoring below threshold. Default: 2.0.
// math.Inf(-1) keeps every image.
func WithScoreThreshold(threshold float64) SearchOption {
	return func(c *searchConfig) { c.threshold = threshold }
}

// WithoutThreshold keeps every image regardless of score.
func WithoutThreshold() SearchOption {
	return WithScoreThreshold(math.Inf(-1))
}

// Search ranks the published index against query, best first.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (results []Result, err error) {
	done := c.obs.begin("search", zap.Int("query_len", len(query)))
	defer func() { done(err, zap.Int("results", len(results))) }()

	sc := searchConfig{topK: domain.DefaultTopK, threshold: domain.DefaultScoreThreshold}
	for _, o := range opts {
		o(&sc)
	}

	req, err := request.New(query, sc.topK, sc.threshold)
	if err != nil {
		return nil, fmt.Errorf("imgdex: %w", err)
	}
	rs, err := c.indexSvc.Search(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("imgdex: %w", err)
	}
	c.obs.searched(len(rs))
	return resultsFromDomain(rs), nil
}

// Evaluate reports, for each threshold, the average number of images per query
// scoring at or above it. nil thresholds use 1.5, 2.0, 2.5 and 3.0.
func (c *Client) Evaluate(
	ctx context.Context, queries []string, thresholds []float64,
) (stats []ThresholdStat, err error) {
	done := c.obs.begin("evaluate", zap.Int("queries", len(queries)))
	defer func() { done(err) }()

	if thresholds == nil {
		thresholds = domain.DefaultEvaluateThresholds()
	}
	s, err := c.indexSvc.Evaluate(ctx, queries, thresholds)
	if err != nil {
		return nil, fmt.Errorf("imgdex: %w", err)
	}
	return statsFromDomain(s), nil
}

// Info describes the published index.
func (c *Client) Info() IndexInfo {
	return infoFromDomain(c.indexSvc.Info())
}
