package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/cfpractice/internal/errors"
	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	overview, err := s.ProgressService.Load(r.Context(), handle)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	handle := chi.URLParam(r, "handle")

	var years models.YearRange
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&years); err != nil {
			log.Warn("malformed year range in recommend request: %v", err)
			handleError(w, r, errors.NewBadRequestError("malformed year range"))
			return
		}
	}

	result, err := s.RecommendationService.Recommend(r.Context(), handle, years)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecheck(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	overview, err := s.ProgressService.Recheck(r.Context(), handle)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	if err := s.ProgressService.ClearHistory(r.Context(), handle); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	problemKey := chi.URLParam(r, "problemKey")
	if problemKey == "" {
		handleError(w, r, errors.NewValidationError("problemKey", "cannot be empty"))
		return
	}

	started, err := s.Coordinator.StartTimer(r.Context(), problemKey)
	if err != nil {
		handleError(w, r, errors.NewInternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"started": started})
}

// handleState returns the current timer snapshot: active timers and
// solved records.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Coordinator.Snapshot(r.Context())
	if err != nil {
		handleError(w, r, errors.NewInternalError(err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	handle, years, err := s.RecommendationService.LastSession(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lastHandle": handle,
		"yearFilter": years,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ExportService.Export(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="cfpractice-backup.json"`)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var snap services.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		handleError(w, r, errors.NewBadRequestError("invalid snapshot document"))
		return
	}

	if err := s.ExportService.Import(r.Context(), snap); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
