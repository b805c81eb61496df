package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/lehigh-university-libraries/snapcard/internal/domain"
	"github.com/lehigh-university-libraries/snapcard/internal/images"
	"github.com/lehigh-university-libraries/snapcard/internal/models"
	"github.com/lehigh-university-libraries/snapcard/internal/pipeline"
	"github.com/lehigh-university-libraries/snapcard/internal/storage"
)

// Runner executes the card pipeline for one image.
type Runner interface {
	Run(ctx context.Context, imagePath string) (*pipeline.Result, error)
}

type Handler struct {
	store      *storage.CardStore
	runner     Runner
	fetcher    *images.Fetcher
	uploadsDir string
}

func New(runner Runner, uploadsDir string) *Handler {
	return &Handler{
		store:      storage.New(),
		runner:     runner,
		fetcher:    images.NewFetcher(),
		uploadsDir: uploadsDir,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// statusFor maps a pipeline failure to the HTTP status reported to clients.
func statusFor(err error) int {
	kind, _ := domain.KindOf(err)
	switch kind {
	case domain.KindMalformedResponse:
		return http.StatusUnprocessableEntity
	case domain.KindBackend:
		return http.StatusBadGateway
	case domain.KindInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*models.CardSession, bool) {
	session, exists := h.store.Get(sessionID)
	if !exists {
		h.writeError(w, "Card not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

// File operation helpers
func (h *Handler) ensureUploadsDir() error {
	return os.MkdirAll(h.uploadsDir, 0755)
}

// recordFailure copies the failing stage, kind and raw backend text onto s.
func recordFailure(s *models.CardSession, err error) {
	s.Status = models.StatusFailed
	s.Error = err.Error()

	var failure *pipeline.Failure
	if errors.As(err, &failure) {
		s.FailedStage = string(failure.Stage)
	}
	var de *domain.Error
	if errors.As(err, &de) {
		s.ErrorKind = string(de.Kind)
		s.RawResponse = de.Raw
	}
}
