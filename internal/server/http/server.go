// Package httpserver provides the HTTP REST API server for the research
// assistant service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/scholarpipe/research-assistant/internal/database"
	"github.com/scholarpipe/research-assistant/internal/domain"
	"github.com/scholarpipe/research-assistant/internal/observability"
	"github.com/scholarpipe/research-assistant/internal/papersources"
	"github.com/scholarpipe/research-assistant/internal/repository"
	"github.com/scholarpipe/research-assistant/internal/submission"
)

// Default stream tuning and upload cap, used when Config leaves them zero.
const (
	defaultMaxUploadBytes = 20 << 20
	defaultStreamInterval = 1 * time.Second
	defaultStreamMaxTime  = 30 * time.Minute
	defaultMetricsPath    = "/metrics"
)

// WorkflowEngine is the workflow surface used by the HTTP layer.
type WorkflowEngine interface {
	Start(topic string, maxPapers int) (string, error)
	GetProgress(id string) (*domain.ResearchWorkflow, error)
	Cancel(id string) error
}

// AssistantService exposes the single-shot completion operations.
type AssistantService interface {
	ExplainConcept(ctx context.Context, concept, extraContext string) (string, error)
	CheckPaper(ctx context.Context, title, content string) (string, error)
}

// SubmissionService is the submission lifecycle surface used by the HTTP layer.
type SubmissionService interface {
	Create(ctx context.Context, req submission.CreateRequest) (*domain.Submission, error)
	Get(ctx context.Context, id string) (*domain.Submission, error)
	List(ctx context.Context, filter repository.SubmissionFilter) ([]*domain.Submission, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus, feedback string) (*domain.Submission, error)
}

// SourceSearcher fans a query out to literature sources.
type SourceSearcher interface {
	SearchSources(ctx context.Context, params papersources.SearchParams, sourceTypes []domain.SourceType) []papersources.SourceResult
}

// HealthChecker reports database health for the readiness endpoint.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	MetricsEnabled  bool
	MetricsPath     string
}

// Server is the HTTP REST API server.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	engine      WorkflowEngine
	assistant   AssistantService
	submissions SubmissionService
	searcher    SourceSearcher
	health      HealthChecker
	logger      zerolog.Logger
	metrics     *observability.Metrics

	maxUploadBytes int64
	streamInterval time.Duration
	streamMaxTime  time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
// metrics may be nil; the metrics endpoint is mounted only when enabled.
func NewServer(
	cfg Config,
	engine WorkflowEngine,
	assistant AssistantService,
	submissions SubmissionService,
	searcher SourceSearcher,
	health HealthChecker,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		engine:         engine,
		assistant:      assistant,
		submissions:    submissions,
		searcher:       searcher,
		health:         health,
		logger:         logger.With().Str("component", "http-server").Logger(),
		metrics:        metrics,
		maxUploadBytes: cfg.MaxUploadBytes,
		streamInterval: defaultStreamInterval,
		streamMaxTime:  defaultStreamMaxTime,
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}

	s.router = s.buildRouter(cfg)

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter(cfg Config) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestMetricsMiddleware(s.metrics))
	r.Use(jsonContentTypeMiddleware)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = defaultMetricsPath
		}
		r.Method(http.MethodGet, path, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/research", func(r chi.Router) {
			r.Post("/workflows", s.startWorkflow)
			r.Get("/workflows/{workflowID}", s.getWorkflow)
			r.Delete("/workflows/{workflowID}", s.cancelWorkflow)
			r.Get("/workflows/{workflowID}/events", s.streamWorkflowEvents)
			r.Post("/search", s.searchPapers)
			r.Post("/explanations", s.explainConcept)
			r.Post("/paper-checks", s.checkPaper)
		})

		r.Post("/submissions", s.createSubmission)
		r.Get("/submissions", s.listSubmissions)
		r.Get("/submissions/{submissionID}", s.getSubmission)
		r.Post("/submissions/{submissionID}/status", s.updateSubmissionStatus)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler returns readiness status including database connectivity.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
