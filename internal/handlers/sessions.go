package handlers

import (
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/snapcard/internal/models"
)

func (h *Handler) HandleCardDetail(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/cards/")

	session, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	switch r.Method {
	case "GET":
		h.writeJSON(w, session)
	case "DELETE":
		h.store.Delete(sessionID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleCardPage serves the rendered HTML of a finished card.
func (h *Handler) HandleCardPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/cards/")
	session, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}
	if session.Status != models.StatusDone || session.CardPath == "" {
		h.writeError(w, "Card was not generated: "+session.Error, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, session.CardPath)
}
