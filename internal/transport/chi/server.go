package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matchdex/matchdex/internal/domain"
	dombatch "github.com/matchdex/matchdex/internal/domain/batch"
	domusage "github.com/matchdex/matchdex/internal/domain/usage"
	"github.com/matchdex/matchdex/internal/metrics"
	aggregatoruc "github.com/matchdex/matchdex/internal/usecase/aggregator"
	facadeuc "github.com/matchdex/matchdex/internal/usecase/facade"
	healthuc "github.com/matchdex/matchdex/internal/usecase/health"
	usageuc "github.com/matchdex/matchdex/internal/usecase/usage"
	"github.com/matchdex/matchdex/internal/version"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API: one record surface per population, the chat
// aggregator, plus health, usage and metrics.
type Server struct {
	resumes       *facadeuc.Service
	jobs          *facadeuc.Service
	aggregator    *aggregatoruc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	resumes *facadeuc.Service,
	jobs *facadeuc.Service,
	aggregator *aggregatoruc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		resumes:    resumes,
		jobs:       jobs,
		aggregator: aggregator,
		usage:      usage,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		aggregationFailureHandler,
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrUnsupportedQuery, http.StatusUnprocessableEntity, codeUnsupportedQuery),
		sentinelHandler(domain.ErrRecordNotFound, http.StatusNotFound, codeRecordNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded,
			http.StatusTooManyRequests, codeEmbeddingQuotaExceeded),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusServiceUnavailable, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrEmbeddingFailure, http.StatusServiceUnavailable, codeEmbeddingFailure),
		sentinelHandler(domain.ErrKeywordSearchNotSupported,
			http.StatusNotImplemented, codeKeywordNotSupported),
	}
	return s
}

// RegisterRoutes mounts all API routes on the router. Middleware (recovery,
// request id, logging, auth, metrics) is applied by the caller.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/resumes", s.recordRoutes(s.resumes))
		r.Route("/jobs", s.recordRoutes(s.jobs))
		r.Post("/chat", s.handleChat)
	})
	r.Get("/health", s.handleHealth)
	r.Get("/usage", s.handleUsage)
	r.Get("/metrics", s.handleMetrics)
}

// recordRoutes wires one population facade under its route prefix. Static
// segments (batch, match, insights) take precedence over the {id} wildcard.
func (s *Server) recordRoutes(svc *facadeuc.Service) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/", s.handleSubmit(svc))
		r.Get("/", s.handleList(svc))
		r.Post("/batch", s.handleSubmitBatch(svc))
		r.Post("/match", s.handleMatch(svc))
		r.Get("/insights", s.handleInsights(svc))
		r.Get("/{id}", s.handleGet(svc))
		r.Delete("/{id}", s.handleRemove(svc))
	}
}

// handleSubmit handles POST /api/v1/{population}.
func (s *Server) handleSubmit(svc *facadeuc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
			return
		}

		population := string(svc.Population())
		ctx, usage := domain.NewContextWithUsage(r.Context())
		rec, err := svc.Submit(ctx, submitInputFromDTO(req))
		if err != nil {
			metrics.IngestedRecordsTotal.WithLabelValues(population, "error").Inc()
			s.handleDomainError(w, err)
			return
		}
		metrics.IngestedRecordsTotal.WithLabelValues(population, "ok").Inc()

		setEmbeddingHeaders(w, usage)
		w.Header().Set("Location", fmt.Sprintf("/api/v1/%s/%s", population, rec.ID()))
		writeJSON(w, http.StatusCreated, recordToDTO(rec))
	}
}

// handleSubmitBatch handles POST /api/v1/{population}/batch.
func (s *Server) handleSubmitBatch(svc *facadeuc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
			return
		}

		if len(req.Items) == 0 || len(req.Items) > facadeuc.MaxBatchSize {
			writeError(w, http.StatusBadRequest, codeValidationFailed,
				fmt.Sprintf("items count must be between 1 and %d", facadeuc.MaxBatchSize))
			return
		}

		ins := make([]facadeuc.SubmitInput, len(req.Items))
		for i, item := range req.Items {
			ins[i] = submitInputFromDTO(item)
		}

		ctx, usage := domain.NewContextWithUsage(r.Context())
		results := svc.SubmitBatch(ctx, ins)

		population := string(svc.Population())
		items := make([]batchResultItem, len(results))
		for i, res := range results {
			items[i] = batchResultToDTO(res)
			if res.Status() == dombatch.StatusOK {
				metrics.IngestedRecordsTotal.WithLabelValues(population, "ok").Inc()
			} else {
				metrics.IngestedRecordsTotal.WithLabelValues(population, "error").Inc()
			}
		}
		succeeded, failed := dombatch.Tally(results)

		setEmbeddingHeaders(w, usage)
		writeJSON(w, http.StatusOK, batchSubmitResponse{
			Items:     items,
			Succeeded: succeeded,
			Failed:    failed,
		})
	}
}

// handleMatch handles POST /api/v1/{population}/match.
func (s *Server) handleMatch(svc *facadeuc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req matchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
			return
		}

		opts, err := matchOptionsFromDTO(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
			return
		}

		population := string(svc.Population())
		modeLabel := req.Mode
		if modeLabel == "" {
			modeLabel = "semantic"
		}

		ctx, usage := domain.NewContextWithUsage(r.Context())
		matches, err := svc.Match(ctx, req.Query, opts)
		if err != nil {
			metrics.MatchRequestsTotal.WithLabelValues(population, modeLabel, "error").Inc()
			s.handleDomainError(w, err)
			return
		}
		metrics.MatchRequestsTotal.WithLabelValues(population, modeLabel, "ok").Inc()
		metrics.MatchResultsReturned.WithLabelValues(population, modeLabel).Observe(float64(len(matches)))

		setEmbeddingHeaders(w, usage)
		writeJSON(w, http.StatusOK, matchResponse{
			Items:           matchesToDTO(matches),
			Total:           len(matches),
			EmbedderVersion: svc.EmbedderVersion(),
		})
	}
}

// handleInsights handles GET /api/v1/{population}/insights.
func (s *Server) handleInsights(svc *facadeuc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := svc.Analytics(r.Context())
		if err != nil {
			s.handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, summaryToDTO(&sum))
	}
}

// handleList handles GET /api/v1/{population}?owner=.
func (s *Server) handleList(svc *facadeuc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("owner")

		recs, err := svc.List(r.Context(), owner)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}

		items := make([]recordResponse, len(recs))
		for i, rec := range recs {
			items[i] = recordToDTO(rec)
		}

		writeJSON(w, http.StatusOK, recordListResponse{Items: items, Total: len(items)})
	}
}

// handleGet handles GET /api/v1/{population}/{id}.
func (s *Server) handleGet(svc *facadeuc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		rec, err := svc.Get(r.Context(), id)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, recordToDTO(rec))
	}
}

// handleRemove handles DELETE /api/v1/{population}/{id}. Idempotent.
func (s *Server) handleRemove(svc *facadeuc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := svc.Remove(r.Context(), id); err != nil {
			s.handleDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// handleChat handles POST /api/v1/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rc := requesterContextFromDTO(req.RequesterContext)

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ans, err := s.aggregator.Answer(ctx, req.Query, rc)
	if err != nil {
		metrics.AggregatorQueriesTotal.WithLabelValues(chatIntentLabel(err), "failed").Inc()
		s.handleDomainError(w, err)
		return
	}

	status := "ok"
	if ans.Degraded {
		status = "degraded"
	}
	metrics.AggregatorQueriesTotal.WithLabelValues(string(ans.Intent), status).Inc()

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, answerToDTO(ans))
}

func chatIntentLabel(err error) string {
	if errors.Is(err, domain.ErrUnsupportedQuery) {
		return "unsupported"
	}
	return "unknown"
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

// handleUsage handles GET /usage.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	period := domusage.PeriodMonth
	switch r.URL.Query().Get("period") {
	case "day":
		period = domusage.PeriodDay
	case "total":
		period = domusage.PeriodTotal
	}

	report := s.usage.GetReport(r.Context(), period)

	resp := usageResponse{
		Period:   string(report.Period()),
		Provider: report.Provider(),
		Usage: usageMetricsDTO{
			EmbeddingRequests: report.Metrics().EmbeddingRequests(),
			Tokens:            report.Metrics().Tokens(),
		},
		Budget: budgetStatusDTO{
			TokensLimit:     report.Budget().TokensLimit(),
			TokensRemaining: report.Budget().TokensRemaining(),
			IsExhausted:     report.Budget().IsExhausted(),
		},
	}

	if report.Metrics().CostMillidollars() > 0 {
		cost := report.Metrics().CostMillidollars()
		resp.Usage.CostMillidollars = &cost
	}

	if report.PeriodStart() > 0 {
		start := report.PeriodStart()
		end := report.PeriodEnd()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}

	if resetsAt := report.Budget().ResetsAt(); resetsAt > 0 {
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleMetrics handles GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrRecordNotFound,
		domain.ErrNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrUnsupportedQuery,
		domain.ErrAggregationFailure,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrEmbeddingFailure,
		domain.ErrKeywordSearchNotSupported,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// aggregationFailureHandler handles ErrAggregationFailure, naming the failed sources.
func aggregationFailureHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrAggregationFailure) {
		return false
	}
	var agg *domain.AggregationError
	if errors.As(err, &agg) {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"code":    codeAggregationFailure,
			"message": msg,
			"sources": agg.Sources,
		})
		return true
	}
	writeError(w, http.StatusBadGateway, codeAggregationFailure, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
