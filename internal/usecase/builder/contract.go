package builder

import (
	"context"

	"github.com/kailas-cloud/imgdex/internal/domain"
)

// ImageEmbedder turns one image file into a token matrix.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, path string) (domain.EmbeddingResult, error)
}
