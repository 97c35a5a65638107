package search

import (
	"context"

	"github.com/kailas-cloud/imgdex/internal/domain"
)

// Embedder vectorizes query text into a token matrix.
type Embedder interface {
	EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
