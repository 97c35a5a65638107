package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/logger"
)

// InstrumentedEmbedder wraps an Embedder with structured logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// EmbedImage delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) EmbedImage(ctx context.Context, path string) (domain.EmbeddingResult, error) {
	return p.observe(ctx, "image", zap.String("path", path), func() (domain.EmbeddingResult, error) {
		return p.inner.EmbedImage(ctx, path)
	})
}

// EmbedText delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return p.observe(ctx, "text", zap.Int("text_len", len(text)), func() (domain.EmbeddingResult, error) {
		return p.inner.EmbedText(ctx, text)
	})
}

// HealthCheck delegates to the inner embedder if it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (p *InstrumentedEmbedder) observe(
	ctx context.Context, kind string, input zap.Field,
	call func() (domain.EmbeddingResult, error),
) (domain.EmbeddingResult, error) {
	log := logger.FromContextOr(ctx, p.logger)
	start := time.Now()

	result, err := call()

	duration := time.Since(start)
	if err != nil {
		log.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.String("kind", kind),
			input,
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed %s: %w", kind, err)
	}

	log.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.String("kind", kind),
		input,
		zap.Duration("duration", duration),
		zap.Int("tokens", result.Matrix.Rows()),
		zap.Int("dimensions", result.Matrix.Dim()),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}
