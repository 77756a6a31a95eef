package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/textqa/internal/answer"
	"github.com/dgallion1/textqa/internal/config"
	"github.com/dgallion1/textqa/internal/index"
	"github.com/dgallion1/textqa/internal/llm"
	"github.com/dgallion1/textqa/internal/pipeline"
)

// Server is the HTTP API server for textqa.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	builder      *index.Builder
	answerer     *answer.Answerer
	client       llm.Client
	stats        *llm.Stats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, builder *index.Builder, answerer *answer.Answerer, client llm.Client, stats *llm.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		builder:      builder,
		answerer:     answerer,
		client:       client,
		stats:        stats,
		log:          log,
		cfg:          cfg,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/documents", s.handleUploadDocument)
		r.Post("/api/documents/{fingerprint}/ask", s.handleAsk)

		r.Post("/api/answersheets", s.handleCreateAnswerSheet)
		r.Get("/api/answersheets/{jobID}", s.handleAnswerSheetStatus)
		r.Get("/api/answersheets/{jobID}/report.pdf", s.handleReportPDF)
		r.Get("/api/answersheets/{jobID}/report.docx", s.handleReportDOCX)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
