package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/lehigh-university-libraries/snapcard/internal/providers"
)

func TestAnalyzeRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := New("").Analyze(context.Background(), providers.Request{})
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}

func TestClassify(t *testing.T) {
	limited := &googleapi.Error{Code: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{"12"}}}
	err := classify(fmt.Errorf("rpc: %w", limited))

	var rle *providers.RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, 12*time.Second, rle.RetryAfter)

	err = classify(&googleapi.Error{Code: http.StatusForbidden})
	assert.False(t, errors.As(err, &rle))
	assert.ErrorContains(t, err, "failed to generate content")
}

func TestFirstCandidateText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{name: "nil", resp: nil, wantErr: true},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name:    "no content",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			wantErr: true,
		},
		{
			name: "joined text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"meta":`), genai.Text(`{}}`)}}},
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
			}},
			want: `{"meta":{}}`,
		},
		{
			name: "non text only",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}}},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := firstCandidateText(tt.resp)
			if tt.wantErr {
				assert.ErrorIs(t, err, providers.ErrEmptyResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
