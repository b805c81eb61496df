package providers

import (
	"context"
	"encoding/base64"
	"errors"
)

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("empty response from backend")

// Params are the model parameters sent with every request
type Params struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Request is a single multimodal analysis request: one image plus the
// instruction text. It is built once per run and not modified afterwards.
type Request struct {
	Image    []byte
	MimeType string
	Prompt   string
	Params   Params
}

// Base64 returns the image encoded for inline transport.
func (r Request) Base64() string {
	return base64.StdEncoding.EncodeToString(r.Image)
}

// DataURI returns the image as a data: URI.
func (r Request) DataURI() string {
	return "data:" + r.MimeType + ";base64," + r.Base64()
}

// Provider defines the interface for a multimodal analysis backend
type Provider interface {
	Analyze(ctx context.Context, req Request) (string, error)
}
