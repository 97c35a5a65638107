package request

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/imgdex/internal/domain"
)

// MaxQueryLength is the maximum allowed search query length in bytes.
const MaxQueryLength = 4096

// Request is a validated search query.
type Request struct {
	query          string
	topK           int
	scoreThreshold float64
}

// New validates search parameters.
// topK <= 0 is valid and yields an empty result. scoreThreshold may be -Inf to disable filtering.
func New(query string, topK int, scoreThreshold float64) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d bytes)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if math.IsNaN(scoreThreshold) {
		return Request{}, fmt.Errorf("%w: score_threshold must be a number", domain.ErrInvalidRequest)
	}
	return Request{query: query, topK: topK, scoreThreshold: scoreThreshold}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// TopK returns the maximum number of results.
func (r *Request) TopK() int { return r.topK }

// ScoreThreshold returns the minimum score a result must reach.
func (r *Request) ScoreThreshold() float64 { return r.scoreThreshold }
