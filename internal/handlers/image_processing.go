package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/snapcard/internal/models"
	"github.com/lehigh-university-libraries/snapcard/internal/utils"
)

// saveImage stores an upload under its content hash so repeated uploads
// share one file.
func (h *Handler) saveImage(fileData []byte, filename string) (string, error) {
	if err := h.ensureUploadsDir(); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	md5Hash := utils.CalculateDataMD5(fileData)
	ext := strings.ToLower(filepath.Ext(filename))
	imageFilePath := filepath.Join(h.uploadsDir, md5Hash+ext)

	if err := os.WriteFile(imageFilePath, fileData, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	slog.Info("Image saved", "filename", filename, "path", imageFilePath, "bytes", len(fileData))
	return imageFilePath, nil
}

// createCardSession runs the pipeline for a saved image and stores the
// outcome, successful or not.
func (h *Handler) createCardSession(ctx context.Context, imagePath, imageName, source string) (*models.CardSession, error) {
	base := strings.TrimSuffix(imageName, filepath.Ext(imageName))
	sessionID := fmt.Sprintf("%s_%s", base, uuid.NewString()[:8])

	session := &models.CardSession{
		ID:        sessionID,
		ImageName: imageName,
		ImagePath: imagePath,
		Source:    source,
		CreatedAt: time.Now(),
	}

	slog.Info("Generating card", "session_id", sessionID, "image", imageName, "source", source)
	result, err := h.runner.Run(ctx, imagePath)
	session.CompletedAt = time.Now()
	if err != nil {
		recordFailure(session, err)
		h.store.Set(sessionID, session)
		return session, err
	}

	session.Status = models.StatusDone
	session.Record = result.Record
	session.CardPath = result.CardPath
	session.CardURL = "/cards/" + sessionID
	session.Published = result.Published
	session.BrokenLinks = result.BrokenLinks
	h.store.Set(sessionID, session)

	slog.Info("Card generated", "session_id", sessionID, "card", result.CardPath)
	return session, nil
}
