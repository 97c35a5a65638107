// Package openai adapts an OpenAI-compatible multi-vector embedding endpoint to domain.Embedder.
package openai

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/matrix"
	"github.com/kailas-cloud/imgdex/internal/metrics"
)

// Embedder is a late-interaction embedding provider behind an OpenAI-compatible API.
// Each request yields one token matrix: either one flattened data entry reshaped by
// the configured dimension, or one data entry per token.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	images     *imagePreprocessor
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // per-token embedding width
	ImageSize  int
	User       string
	Provider   string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		images:     newImagePreprocessor(cfg.ImageSize),
		logger:     logger,
	}
}

// EmbedImage implements domain.Embedder. The file is decoded and resized locally,
// then sent as a PNG data URL.
func (e *Embedder) EmbedImage(ctx context.Context, path string) (domain.EmbeddingResult, error) {
	dataURL, err := e.images.DataURL(path)
	if err != nil {
		e.countError("image", "preprocess")
		return domain.EmbeddingResult{}, fmt.Errorf("%s: %w: %w", path, domain.ErrEmbeddingProviderError, err)
	}
	return e.embed(ctx, "image", dataURL)
}

// EmbedText implements domain.Embedder.
func (e *Embedder) EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return e.embed(ctx, "text", text)
}

func (e *Embedder) embed(ctx context.Context, kind, input string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{input},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatBase64,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)
	model := string(e.model)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, kind, "error").Inc()
		e.countError(kind, "api_error")
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	m, err := e.toMatrix(resp.Data)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, kind, "error").Inc()
		e.countError(kind, "bad_response")
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, kind, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model, kind).Observe(duration.Seconds())

	totalTokens := resp.Usage.TotalTokens
	promptTokens := resp.Usage.PromptTokens
	if totalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(promptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(totalTokens))
	}

	return domain.EmbeddingResult{
		Matrix:       m,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// toMatrix assembles the token matrix from the response data entries.
func (e *Embedder) toMatrix(data []openai.Embedding) (matrix.Matrix, error) {
	switch len(data) {
	case 0:
		return matrix.Matrix{}, errors.New("empty embedding response")
	case 1:
		dim := e.dimensions
		if dim <= 0 {
			dim = len(data[0].Embedding)
		}
		return matrix.FromFlat(dim, data[0].Embedding)
	}

	sorted := slices.Clone(data)
	slices.SortFunc(sorted, func(a, b openai.Embedding) int { return cmp.Compare(a.Index, b.Index) })
	rows := make([][]float32, len(sorted))
	for i := range sorted {
		rows[i] = sorted[i].Embedding
	}
	m, err := matrix.FromRows(rows)
	if err != nil {
		return matrix.Matrix{}, err
	}
	if e.dimensions > 0 && m.Dim() != e.dimensions {
		return matrix.Matrix{}, fmt.Errorf("token dim %d, configured %d", m.Dim(), e.dimensions)
	}
	return m, nil
}

func (e *Embedder) countError(kind, errType string) {
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), kind, errType).Inc()
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEmbeddingProviderError for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("embedding request: %w: %w", wrap, err)
	}
	return fmt.Errorf("embedding request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
