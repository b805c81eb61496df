package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/snapcard/internal/providers"
)

// Ollama is a provider for a local Ollama server
type Ollama struct {
	baseURL string
	client  *http.Client
}

// New returns a new Ollama provider. An empty baseURL falls back to
// OLLAMA_URL, then to the default local address.
func New(baseURL string) *Ollama {
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

// Analyze sends the prompt with the image attached to /api/generate
func (o *Ollama) Analyze(ctx context.Context, req providers.Request) (string, error) {
	options := map[string]any{
		"temperature": req.Params.Temperature,
	}
	if req.Params.MaxTokens > 0 {
		options["num_predict"] = req.Params.MaxTokens
	}

	requestBody, err := json.Marshal(generateRequest{
		Model:   req.Params.Model,
		Prompt:  req.Prompt,
		Images:  []string{req.Base64()},
		Stream:  false,
		Options: options,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(resp.Body)
		retryAfter := providers.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return "", providers.NewRateLimitError("ollama", errors.New(string(body)), retryAfter)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if strings.TrimSpace(response.Response) == "" {
		return "", providers.ErrEmptyResponse
	}

	return response.Response, nil
}
