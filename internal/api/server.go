package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/cfpractice/internal/services"
	"github.com/vytor/cfpractice/internal/timers"
)

type Server struct {
	ProgressService       services.ProgressService
	RecommendationService services.RecommendationService
	ExportService         services.ExportService
	Coordinator           *timers.Coordinator
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/users/{handle}/history", s.handleHistory)
		r.Post("/users/{handle}/recommend", s.handleRecommend)
		r.Post("/users/{handle}/recheck", s.handleRecheck)
		r.Post("/users/{handle}/history/clear", s.handleClearHistory)

		r.Post("/timers/{problemKey}/start", s.handleStartTimer)
		r.Get("/state", s.handleState)
		r.Get("/session", s.handleSession)

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
	})

	r.Get("/ws", s.handleWS)

	return r
}
