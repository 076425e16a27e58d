package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/docqa/internal/config"
	"github.com/dgallion1/docqa/internal/history"
	"github.com/dgallion1/docqa/internal/llm"
	"github.com/dgallion1/docqa/internal/pipeline"
)

// Jobs is the part of the pipeline the API drives.
type Jobs interface {
	Submit(ctx context.Context, job *pipeline.Job) error
	GetJob(ctx context.Context, id string) (pipeline.JobSnapshot, bool, error)
	QueueDepth() int
}

// StatsSource reports recent model call latencies.
type StatsSource interface {
	Snapshot() llm.StatsSnapshot
}

// HistoryLister reads recent runs.
type HistoryLister interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
}

// Server is the HTTP API server for docqa.
type Server struct {
	router  chi.Router
	jobs    Jobs
	stats   StatsSource
	history HistoryLister
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server. stats and hist may be nil.
func NewServer(jobs Jobs, stats StatsSource, hist HistoryLister, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		jobs:    jobs,
		stats:   stats,
		history: hist,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(CountRequests)

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DocqaAPIKey, s.log))

		r.Post("/api/ask", s.handleAsk)
		r.Post("/api/ask/batch", s.handleBatchAsk)
		r.Get("/api/ask/{jobID}", s.handleAskStatus)
		r.Get("/api/stats/llm", s.handleLLMStats)
		r.Get("/api/history", s.handleHistory)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.jobs.QueueDepth(),
	})
}
