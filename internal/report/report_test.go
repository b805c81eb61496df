package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/snapcard/internal/linkcheck"
)

func TestSaveAndLoad(t *testing.T) {
	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	entries := []Entry{
		{Image: "a.png", CardPath: "output/a.html", Title: "A", Confidence: 90, DurationMS: 1200,
			BrokenLinks: []linkcheck.Result{{URL: "https://x.test", Status: 404}}},
		{Image: "b.png", FailedStage: "extract", ErrorKind: "malformed_response", Error: "missing card",
			RawResponse: "Sorry, I can't read this image."},
	}
	b := New(RunConfig{Provider: "openai", Model: "gpt-4o", Concurrency: 2}, entries)
	assert.Equal(t, 1, b.Succeeded)
	assert.Equal(t, 1, b.Failed)

	dir := filepath.Join(t.TempDir(), "reports")
	path, err := SaveToYAML(dir, b, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "batch-2025-02-03_04-05-06.yaml"), path)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-03_04-05-06", loaded.Config.Timestamp)
	assert.Equal(t, b.Results, loaded.Results)
	assert.Equal(t, 1, loaded.Failed)
}
