package imgdex

import "github.com/kailas-cloud/imgdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrCorruptIndex           = domain.ErrCorruptIndex
	ErrIndexIO                = domain.ErrIndexIO
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrProviderMismatch       = domain.ErrProviderMismatch
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrInvalidRequest         = domain.ErrInvalidRequest
)
