package imgdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/matrix"
	openaiEmb "github.com/kailas-cloud/imgdex/internal/transport/openai"
)

// Embedder turns images and query text into token embedding matrices.
// Every row of Tokens is one token; all rows share the provider's dimension.
type Embedder interface {
	EmbedImage(ctx context.Context, path string) (EmbeddingResult, error)
	EmbedText(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the token matrix and token counts.
type EmbeddingResult struct {
	Tokens       [][]float32
	PromptTokens int
	TotalTokens  int
}

// OpenAIConfig configures the bundled OpenAI-compatible multi-vector provider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // per-token width; 0 keeps whatever the server returns
	ImageSize  int // square edge images are resized to; default 224
	Timeout    time.Duration
}

// OpenAIEmbedder is the bundled provider for OpenAI-compatible endpoints that
// return one multi-vector embedding per input (base64 encoded).
type OpenAIEmbedder struct {
	inner      *openaiEmb.Embedder
	dimensions int
}

// NewOpenAIEmbedder creates the bundled provider.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{inner: openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		ImageSize:  cfg.ImageSize,
		Provider:   "openai",
		Timeout:    cfg.Timeout,
	}), dimensions: cfg.Dimensions}
}

// EmbedImage implements Embedder.
func (e *OpenAIEmbedder) EmbedImage(ctx context.Context, path string) (EmbeddingResult, error) {
	r, err := e.inner.EmbedImage(ctx, path)
	if err != nil {
		return EmbeddingResult{}, err //nolint:wrapcheck // already wrapped by the adapter
	}
	return fromDomain(r), nil
}

// EmbedText implements Embedder.
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) (EmbeddingResult, error) {
	r, err := e.inner.EmbedText(ctx, text)
	if err != nil {
		return EmbeddingResult{}, err //nolint:wrapcheck // already wrapped by the adapter
	}
	return fromDomain(r), nil
}

// HealthCheck lists the provider's models.
func (e *OpenAIEmbedder) HealthCheck(ctx context.Context) error {
	return e.inner.HealthCheck(ctx) //nolint:wrapcheck // already wrapped by the adapter
}

func fromDomain(r domain.EmbeddingResult) EmbeddingResult {
	return EmbeddingResult{
		Tokens:       r.Matrix.ToRows(),
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}
}

// toDomainEmbedder adapts a public Embedder to domain.Embedder.
// The bundled provider is unwrapped so matrices are not copied twice.
func toDomainEmbedder(e Embedder) domain.Embedder {
	if oe, ok := e.(*OpenAIEmbedder); ok {
		return oe.inner
	}
	return &embedderAdapter{inner: e}
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) EmbedImage(ctx context.Context, path string) (domain.EmbeddingResult, error) {
	r, err := a.inner.EmbedImage(ctx, path)
	if err != nil {
		return domain.EmbeddingResult{}, providerError("embed image", err)
	}
	return toDomain(r)
}

func (a *embedderAdapter) EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.EmbedText(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, providerError("embed text", err)
	}
	return toDomain(r)
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent adapter
	}
	return nil
}

func toDomain(r EmbeddingResult) (domain.EmbeddingResult, error) {
	m, err := matrix.FromRows(r.Tokens)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return domain.EmbeddingResult{
		Matrix:       m,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// providerError marks an embedder failure as ErrEmbeddingProviderError unless it already is one.
func providerError(op string, err error) error {
	if errors.Is(err, domain.ErrEmbeddingProviderError) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrEmbeddingProviderError, err)
}
