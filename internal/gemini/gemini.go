package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/lehigh-university-libraries/snapcard/internal/providers"
)

// Gemini is a provider for Google Gemini
type Gemini struct {
	apiKey string
	opts   []option.ClientOption
}

// New returns a new Gemini provider. An empty apiKey falls back to
// GEMINI_API_KEY. Extra client options are passed to the SDK as is.
func New(apiKey string, opts ...option.ClientOption) *Gemini {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	return &Gemini{apiKey: apiKey, opts: opts}
}

// Analyze sends the image and prompt as one content turn
func (g *Gemini) Analyze(ctx context.Context, req providers.Request) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	opts := append([]option.ClientOption{option.WithAPIKey(g.apiKey)}, g.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(req.Params.Model)
	model.SetTemperature(float32(req.Params.Temperature))
	if req.Params.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.Params.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: req.MimeType, Data: req.Image},
		genai.Text(req.Prompt),
	)
	if err != nil {
		return "", classify(err)
	}

	return firstCandidateText(resp)
}

func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		retryAfter := providers.ParseRetryAfterHeader(apiErr.Header.Get("Retry-After"))
		return providers.NewRateLimitError("gemini", err, retryAfter)
	}
	return fmt.Errorf("failed to generate content: %w", err)
}

func firstCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini: %w", providers.ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini: %w", providers.ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("unexpected response format from Gemini: %w", providers.ErrEmptyResponse)
	}
	return sb.String(), nil
}
