package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// MaxImageBytes caps the size of a downloaded screenshot.
const MaxImageBytes = 10 << 20

// SupportedExtensions are the screenshot formats the pipeline accepts.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// Fetcher retrieves screenshots over HTTP
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsURL reports whether s looks like an http(s) URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsSupported reports whether name has a screenshot extension.
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Fetch downloads imageURL and returns its bytes with a file name derived
// from the URL path or, failing that, the response content type.
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image at %s is empty", imageURL)
	}

	name := fileName(imageURL, resp.Header.Get("Content-Type"))
	slog.Info("Image downloaded", "url", imageURL, "name", name, "bytes", len(data))
	return data, name, nil
}

// Download fetches imageURL into dir and returns the written path.
func (f *Fetcher) Download(ctx context.Context, imageURL, dir string) (string, error) {
	data, name, err := f.Fetch(ctx, imageURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}
	outputPath := filepath.Join(dir, name)
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return outputPath, nil
}

func fileName(imageURL, contentType string) string {
	base := "image"
	if u, err := url.Parse(imageURL); err == nil {
		if b := path.Base(u.Path); b != "" && b != "/" && b != "." {
			base = b
		}
	}
	if IsSupported(base) {
		return base
	}

	ext := ".jpg"
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "image/png":
			ext = ".png"
		case "image/webp":
			ext = ".webp"
		case "image/gif":
			ext = ".gif"
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}
