package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/imgdex/internal/config"
	dbRedis "github.com/kailas-cloud/imgdex/internal/db/redis"
	dbS3 "github.com/kailas-cloud/imgdex/internal/db/s3"
	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/evaluation"
	"github.com/kailas-cloud/imgdex/internal/domain/search/request"
	"github.com/kailas-cloud/imgdex/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/imgdex/internal/logger"
	"github.com/kailas-cloud/imgdex/internal/metrics"
	"github.com/kailas-cloud/imgdex/internal/repository/embcache"
	"github.com/kailas-cloud/imgdex/internal/repository/indexstore"
	chiTransport "github.com/kailas-cloud/imgdex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/imgdex/internal/transport/openai"
	"github.com/kailas-cloud/imgdex/internal/usecase/builder"
	collectionuc "github.com/kailas-cloud/imgdex/internal/usecase/collection"
	embeddinguc "github.com/kailas-cloud/imgdex/internal/usecase/embedding"
	evaluateuc "github.com/kailas-cloud/imgdex/internal/usecase/evaluate"
	healthuc "github.com/kailas-cloud/imgdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/imgdex/internal/usecase/search"
)

// indexService is what the commands need from the collection service.
type indexService interface {
	Build(ctx context.Context, dir string, persist bool) (builder.Report, error)
	Load(ctx context.Context) error
	Save(ctx context.Context) error
	Search(ctx context.Context, req *request.Request) ([]result.Result, error)
	Evaluate(ctx context.Context, queries []string, thresholds []float64) ([]evaluation.ThresholdStat, error)
	Info() collectionuc.Info
}

// app is the wired process: configuration, logger and services.
type app struct {
	cfg     config.Config
	env     string
	logger  *zap.Logger
	index   indexService
	health  chiTransport.HealthChecker
	closers []func()
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// loadIndex publishes the stored index. A missing index is not an error when optional is set.
func (a *app) loadIndex(ctx context.Context, optional bool) error {
	err := a.index.Load(ctx)
	if err == nil || (optional && errors.Is(err, domain.ErrNotFound)) {
		if err != nil {
			a.logger.Info("No stored index yet", zap.Error(err))
		}
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w (run `imgdex build` first)", err)
	}
	return err
}

// appOptions come from the persistent flags.
type appOptions struct {
	configPath string
	env        string
}

// opener builds the app for a command. Tests substitute their own.
type opener func(ctx context.Context, opts appOptions) (*app, error)

// openApp is the composition root.
func openApp(ctx context.Context, opts appOptions) (*app, error) {
	env := opts.env
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{
		Level:    cfg.Logging.Level,
		Encoding: cfg.Logging.Encoding,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, env: env, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logger

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIndexMetrics()

	var kv *dbRedis.Store
	if cfg.Database.Enabled() {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.Database.Addrs,
			Username:   cfg.Database.Username,
			Password:   cfg.Database.Password,
			DB:         cfg.Database.DB,
			Standalone: cfg.Database.Standalone,
		})
		if err != nil {
			return fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		a.closers = append(a.closers, store.Close)

		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			return fmt.Errorf("%s not ready: %w", cfg.Database.Driver, err)
		}
		logger.Info("Connected to database",
			zap.String("driver", cfg.Database.Driver),
			zap.Strings("addrs", cfg.Database.Addrs),
		)
		kv = store
	}

	store, err := a.indexStore(ctx, kv)
	if err != nil {
		return err
	}

	embedder := buildEmbedder(cfg, kv, logger)
	logger.Debug("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	searchSvc := searchuc.New(embedder)
	collection := collectionuc.New(
		store,
		builder.New(embedder, cfg.Embedding.Model, cfg.Embedding.Dimensions, logger),
		searchSvc,
		evaluateuc.New(searchSvc, logger),
		cfg.Embedding.Model,
		logger,
	)
	a.index = collection

	// Pass nil interface (not typed nil pointer!) when no database is configured.
	var pinger healthuc.DBPinger
	if kv != nil {
		pinger = kv
	}
	a.health = healthuc.New(pinger, newEmbeddingHealthChecker(embedder), func() healthuc.IndexCounter { return collection.Index() })
	return nil
}

// indexStore selects the index persistence backend.
func (a *app) indexStore(ctx context.Context, kv *dbRedis.Store) (collectionuc.Store, error) {
	cfg := a.cfg
	switch cfg.Index.Backend {
	case config.BackendRedis, config.BackendValkey:
		key := indexstore.IndexKey(cfg.Storage.KeyPrefix, cfg.Index.Name)
		a.logger.Info("Index store", zap.String("backend", cfg.Index.Backend), zap.String("key", key))
		return indexstore.NewBlobStore(kv, key), nil
	case config.BackendS3:
		oc := cfg.ObjectStore
		s3, err := dbS3.NewStore(dbS3.Config{
			Endpoint:        oc.Endpoint,
			AccessKeyID:     oc.AccessKeyID,
			SecretAccessKey: oc.SecretAccessKey,
			Bucket:          oc.Bucket,
			Region:          oc.Region,
			UseSSL:          oc.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 store: %w", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", oc.Bucket, err)
		}
		a.logger.Info("Index store", zap.String("backend", "s3"),
			zap.String("bucket", oc.Bucket), zap.String("key", oc.ObjectKey))
		return indexstore.NewBlobStore(s3, oc.ObjectKey), nil
	default:
		a.logger.Info("Index store", zap.String("backend", "file"), zap.String("path", cfg.Index.Path))
		return indexstore.NewFileStore(cfg.Index.Path), nil
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(cfg config.Config, kv *dbRedis.Store, logger *zap.Logger) domain.Embedder {
	ec := cfg.Embedding

	// Base provider (with transport metrics built-in)
	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		ImageSize:  ec.ImageSize,
		Provider:   ec.Provider,
		Timeout:    ec.Timeout(),
		Logger:     logger,
	})

	if kv != nil {
		embedder = embcache.New(embedder, kv, embcache.Config{
			KeyPrefix: cfg.Storage.KeyPrefix,
			Model:     ec.Model,
			TTL:       ec.CacheTTL(),
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, logger)

	// Instruction prefix (outermost, cache key includes instruction)
	if ec.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, ec.QueryInstruction)
	}
	return embedder
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
