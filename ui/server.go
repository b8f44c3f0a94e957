// Package ui exposes the analyzer over HTTP for interactive use. The core
// contract stays caller-owned: this server is one caller among others.
package ui

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pvsignal/adapters/postgres"
	"pvsignal/domain/signal"
	"pvsignal/internal"
)

// Server wires the analyzer, the loaded record set, and the optional run
// repository behind a chi router.
type Server struct {
	router  *chi.Mux
	records []signal.Record
	repo    *postgres.RunRepository // nil when no database is configured
	log     *internal.Logger
}

// NewServer creates a server over an in-memory record set. repo may be nil;
// persistence endpoints then answer 503.
func NewServer(records []signal.Record, repo *postgres.RunRepository) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		records: records,
		repo:    repo,
		log:     internal.DefaultLogger,
	}

	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze/stratified", s.handleAnalyzeStratified)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/report", s.handleRunReport)
	})

	return s
}

// Handler returns the HTTP handler for mounting or serving.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the server on the given port.
func (s *Server) ListenAndServe(port string) error {
	s.log.Info("listening on :%s, %d records loaded", port, len(s.records))
	return http.ListenAndServe(":"+port, s.router)
}
