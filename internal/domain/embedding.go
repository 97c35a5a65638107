package domain

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/imgdex/internal/domain/matrix"
)

// Embedder is the shared multi-vector embedding contract between layers.
// Both methods return one row per token; the dimension is fixed per provider.
type Embedder interface {
	EmbedImage(ctx context.Context, path string) (EmbeddingResult, error)
	EmbedText(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the token matrix and token usage through the decorator chain.
type EmbeddingResult struct {
	Matrix       matrix.Matrix
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder is a domain decorator that prepends instruction text to queries.
// Images pass through unchanged.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// EmbedText prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) EmbedText(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.EmbedText(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// EmbedImage delegates to inner embedder.
func (e *InstructionEmbedder) EmbedImage(ctx context.Context, path string) (EmbeddingResult, error) {
	return e.inner.EmbedImage(ctx, path) //nolint:wrapcheck // transparent decorator
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
