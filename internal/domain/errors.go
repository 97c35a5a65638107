package domain

import "errors"

var (
	// ErrNotFound signals a missing resource (index blob, image directory).
	ErrNotFound = errors.New("not found")
	// ErrCorruptIndex signals a persisted index that cannot be decoded.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrIndexIO signals a failure while persisting an index.
	ErrIndexIO = errors.New("index io error")
	// ErrVectorDimMismatch signals an embedding dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrProviderMismatch signals an index built by a different embedding model.
	ErrProviderMismatch = errors.New("embedding provider mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure for a single input.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInvalidRequest signals invalid caller-supplied parameters.
	ErrInvalidRequest = errors.New("invalid request")
)

// ProviderMismatchError wraps ErrProviderMismatch with both model names.
type ProviderMismatchError struct {
	IndexModel    string
	ProviderModel string
}

func (e *ProviderMismatchError) Error() string {
	return ErrProviderMismatch.Error() + ": index built with " + e.IndexModel +
		", provider is " + e.ProviderModel
}

func (e *ProviderMismatchError) Unwrap() error { return ErrProviderMismatch }

// NewProviderMismatch creates a provider mismatch error.
func NewProviderMismatch(indexModel, providerModel string) error {
	return &ProviderMismatchError{IndexModel: indexModel, ProviderModel: providerModel}
}
