package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/search/request"
	"github.com/kailas-cloud/imgdex/internal/logger"
	"github.com/kailas-cloud/imgdex/internal/metrics"
	collectionuc "github.com/kailas-cloud/imgdex/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/imgdex/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Defaults fill in request parameters the client omitted.
type Defaults struct {
	TopK               int
	ScoreThreshold     float64
	EvaluateThresholds []float64
	ImageDir           string
}

// Server serves the imgdex HTTP API.
type Server struct {
	index         IndexService
	health        HealthChecker
	defaults      Defaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(index IndexService, health HealthChecker, defaults Defaults, logger *zap.Logger) *Server {
	s := &Server{
		index:    index,
		health:   health,
		defaults: defaults,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		invalidRequestHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusConflict, ErrorCodeVectorDimMismatch),
		sentinelHandler(domain.ErrProviderMismatch, http.StatusConflict, ErrorCodeProviderMismatch),
		sentinelHandler(domain.ErrCorruptIndex, http.StatusUnprocessableEntity, ErrorCodeCorruptIndex),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrIndexIO, http.StatusInternalServerError, ErrorCodeIndexIO),
	}
	return s
}

// GetIndex handles GET /api/v1/index.
func (s *Server) GetIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, infoToResponse(s.index.Info()))
}

// BuildIndex handles POST /api/v1/index/build.
func (s *Server) BuildIndex(w http.ResponseWriter, r *http.Request) {
	var req BuildIndexRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	dir := req.Directory
	if dir == "" {
		dir = s.defaults.ImageDir
	}
	if dir == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "directory is required")
		return
	}
	persist := req.Persist == nil || *req.Persist

	report, err := s.index.Build(r.Context(), dir, persist)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	failures := make([]BuildFailure, len(report.Failures))
	for i, f := range report.Failures {
		failures[i] = BuildFailure{Path: f.Path, Error: f.Err.Error()}
	}
	writeJSON(w, http.StatusOK, BuildIndexResponse{
		Scanned:    report.Scanned,
		Indexed:    report.Indexed,
		Skipped:    report.Skipped,
		Failures:   failures,
		DurationMs: report.Duration.Milliseconds(),
		Persisted:  persist,
		Index:      infoToResponse(s.index.Info()),
	})
}

// ReloadIndex handles POST /api/v1/index/reload.
func (s *Server) ReloadIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Load(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, infoToResponse(s.index.Info()))
}

// SearchPost handles POST /api/v1/search.
func (s *Server) SearchPost(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	var threshold *float64
	if req.ScoreThreshold != nil {
		v := float64(*req.ScoreThreshold)
		threshold = &v
	}
	s.search(w, r, req.Query, req.TopK, threshold)
}

// SearchGet handles GET /api/v1/search?q=...&top_k=...&score_threshold=...
func (s *Server) SearchGet(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	s.search(w, r, params.Q, params.TopK, params.ScoreThreshold)
}

func bindSearchParams(query url.Values) (SearchParams, error) {
	var params SearchParams
	if err := runtime.BindQueryParameter("form", true, true, "q", query, &params.Q); err != nil {
		return params, err //nolint:wrapcheck // message is client-facing
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", query, &params.TopK); err != nil {
		return params, err //nolint:wrapcheck // message is client-facing
	}
	err := runtime.BindQueryParameter("form", true, false, "score_threshold", query, &params.ScoreThreshold)
	return params, err //nolint:wrapcheck // message is client-facing
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, query string, topK *int, threshold *float64) {
	k := s.defaults.TopK
	if topK != nil {
		k = *topK
	}
	th := s.defaults.ScoreThreshold
	if threshold != nil {
		th = *threshold
	}

	req, err := request.New(query, k, th)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results, err := s.index.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = SearchResultItem{
			ID:       results[i].ID(),
			Path:     results[i].SourcePath(),
			Filename: results[i].Filename(),
			Score:    Float(results[i].Score()),
		}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Items: items, Total: len(items)})
}

// Evaluate handles POST /api/v1/evaluate.
func (s *Server) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	thresholds := s.defaults.EvaluateThresholds
	if len(req.Thresholds) > 0 {
		thresholds = make([]float64, len(req.Thresholds))
		for i, t := range req.Thresholds {
			thresholds[i] = float64(t)
		}
	}

	stats, err := s.index.Evaluate(r.Context(), req.Queries, thresholds)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]ThresholdStatItem, len(stats))
	for i, st := range stats {
		items[i] = ThresholdStatItem{
			Threshold:      Float(st.Threshold),
			TotalResults:   st.TotalResults,
			AverageResults: st.AverageResults,
		}
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{Queries: len(req.Queries), Items: items})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Records: report.Records,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}

// decodeBody decodes a JSON body into v. An empty body is accepted when optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func infoToResponse(info collectionuc.Info) IndexInfoResponse {
	resp := IndexInfoResponse{
		Records:   info.Records,
		Dimension: info.Dimension,
		Model:     info.Model,
	}
	if !info.LoadedAt.IsZero() {
		t := info.LoadedAt.UTC()
		resp.LoadedAt = &t
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrProviderMismatch,
		domain.ErrCorruptIndex,
		domain.ErrEmbeddingProviderError,
		domain.ErrIndexIO,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// invalidRequestHandler reports validation errors verbatim; they only carry caller input.
func invalidRequestHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrInvalidRequest) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
