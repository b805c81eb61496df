package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/snapcard/internal/domain"
	"github.com/lehigh-university-libraries/snapcard/internal/providers"
)

// DefaultTimeout bounds a backend call when none is configured.
const DefaultTimeout = 120 * time.Second

// Invoker performs the single backend call of a run.
type Invoker struct {
	provider providers.Provider
	params   providers.Params
	timeout  time.Duration
}

func NewInvoker(p providers.Provider, params providers.Params, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Invoker{provider: p, params: params, timeout: timeout}
}

// Invoke sends image and prompt to the backend once and returns its raw
// text. Every failure, including the deadline, is a backend error.
func (i *Invoker) Invoke(ctx context.Context, image []byte, prompt string) (string, error) {
	req := providers.Request{
		Image:    image,
		MimeType: DetectMimeType(image),
		Prompt:   prompt,
		Params:   i.params,
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	start := time.Now()
	text, err := i.provider.Analyze(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", domain.BackendError(fmt.Sprintf("analysis timed out after %s", i.timeout), err)
		}
		return "", domain.BackendError("analysis request failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.BackendError("analysis request failed", providers.ErrEmptyResponse)
	}

	slog.Info("Analysis complete",
		"model", req.Params.Model,
		"image_bytes", len(image),
		"response_chars", len(text),
		"duration", time.Since(start).Round(time.Millisecond))
	return text, nil
}

// DetectMimeType sniffs the image type, defaulting to JPEG.
func DetectMimeType(image []byte) string {
	mime := http.DetectContentType(image)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/jpeg"
}
