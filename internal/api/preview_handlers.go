package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reelforge/reelforge-agent/internal/project"
)

// previewStateHandler receives the player's position and play state and
// answers with the segment to highlight.
func previewStateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PreviewStateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "INVALID_INPUT")
			return
		}
		if req.Frame < 0 {
			WriteError(w, http.StatusBadRequest, "frame must not be negative", "INVALID_INPUT")
			return
		}

		update, err := cfg.Sessions.Report(r.Context(), project.SanitizeTitle(chi.URLParam(r, "title")), req.Frame, req.Playing)
		if err != nil {
			writeAppError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, update)
	}
}

func previewActiveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		update, ok := cfg.Sessions.Active(project.SanitizeTitle(chi.URLParam(r, "title")))
		if !ok {
			WriteError(w, http.StatusNotFound, "no preview session", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, update)
	}
}

func previewCloseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Sessions.Close(project.SanitizeTitle(chi.URLParam(r, "title"))) {
			WriteError(w, http.StatusNotFound, "no preview session", "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
