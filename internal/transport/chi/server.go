package chi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lorekeeper/internal/domain"
	"github.com/kailas-cloud/lorekeeper/internal/metrics"
	healthuc "github.com/kailas-cloud/lorekeeper/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// Server serves the retrieval HTTP API.
type Server struct {
	retriever Retriever
	answers   Asker
	health    HealthReporter
	defaults  Defaults
	logger    *zap.Logger
}

// NewServer creates an HTTP API server. answers may be nil when no
// generation model is configured; /v1/ask then responds 501.
func NewServer(
	retriever Retriever,
	answers Asker,
	health HealthReporter,
	defaults Defaults,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		retriever: retriever,
		answers:   answers,
		health:    health,
		defaults:  defaults,
		logger:    logger,
	}
}

// Routes builds the chi router with the full middleware stack.
func (s *Server) Routes(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/retrieve", s.Retrieve)
		r.Post("/ask", s.Ask)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})
	return r
}

// Retrieve handles POST /v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	req, err := s.defaults.toRequest(in)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.retriever.Retrieve(ctx, &req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, retrieveToResponse(&res))
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	if s.answers == nil {
		writeError(w, http.StatusNotImplemented, CodeNotImplemented, "answer generation is not configured")
		return
	}
	in, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	req, err := s.defaults.toRequest(in)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ans, err := s.answers.Ask(ctx, &req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, AskResponse{
		Answer: ans.Text,
		Hits:   hitsToResponse(ans.Result.Hits()),
		Trace:  nonNil(ans.Result.Trace()),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

func decodeQuestion(w http.ResponseWriter, r *http.Request) (QuestionRequest, bool) {
	var in QuestionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return QuestionRequest{}, false
	}
	return in, true
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.RequestUsage) {
	if usage == nil {
		return
	}
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
	w.Header().Set("X-Store-Queries", strconv.Itoa(usage.StoreQueries))
}
