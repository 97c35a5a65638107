package chi

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed       ErrorCode = "method_not_allowed"
	ErrorCodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	ErrorCodeProviderMismatch       ErrorCode = "provider_mismatch"
	ErrorCodeCorruptIndex           ErrorCode = "corrupt_index"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeIndexIO                ErrorCode = "index_io_error"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Float is a float64 that carries ±Inf and NaN through JSON as strings ("-Inf").
// Finite values are plain JSON numbers.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return json.Marshal(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*f = Float(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	*f = Float(v)
	return nil
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Records int               `json:"records"`
}

// IndexInfoResponse describes the published index.
type IndexInfoResponse struct {
	Records   int        `json:"records"`
	Dimension int        `json:"dimension"`
	Model     string     `json:"model,omitempty"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
}

// BuildIndexRequest is the body of POST /api/v1/index/build.
type BuildIndexRequest struct {
	Directory string `json:"directory,omitempty"`
	Persist   *bool  `json:"persist,omitempty"` // default true
}

// BuildFailure is one image the build skipped.
type BuildFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// BuildIndexResponse reports a finished build.
type BuildIndexResponse struct {
	Scanned    int               `json:"scanned"`
	Indexed    int               `json:"indexed"`
	Skipped    int               `json:"skipped"`
	Failures   []BuildFailure    `json:"failures"`
	DurationMs int64             `json:"duration_ms"`
	Persisted  bool              `json:"persisted"`
	Index      IndexInfoResponse `json:"index"`
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query          string `json:"query"`
	TopK           *int   `json:"top_k,omitempty"`
	ScoreThreshold *Float `json:"score_threshold,omitempty"`
}

// SearchParams are the query parameters of GET /api/v1/search.
type SearchParams struct {
	Q              string
	TopK           *int
	ScoreThreshold *float64
}

// SearchResultItem is one ranked image.
type SearchResultItem struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Score    Float  `json:"score"`
}

// SearchResponse is returned by both search endpoints.
type SearchResponse struct {
	Items []SearchResultItem `json:"items"`
	Total int                `json:"total"`
}

// EvaluateRequest is the body of POST /api/v1/evaluate.
type EvaluateRequest struct {
	Queries    []string `json:"queries"`
	Thresholds []Float  `json:"thresholds,omitempty"`
}

// ThresholdStatItem is the yield of one threshold.
type ThresholdStatItem struct {
	Threshold      Float   `json:"threshold"`
	TotalResults   int     `json:"total_results"`
	AverageResults float64 `json:"average_results"`
}

// EvaluateResponse is returned by POST /api/v1/evaluate.
type EvaluateResponse struct {
	Queries int                 `json:"queries"`
	Items   []ThresholdStatItem `json:"items"`
}
