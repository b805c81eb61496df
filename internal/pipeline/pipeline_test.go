package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/snapcard/internal/card"
	"github.com/lehigh-university-libraries/snapcard/internal/domain"
	"github.com/lehigh-university-libraries/snapcard/internal/linkcheck"
	"github.com/lehigh-university-libraries/snapcard/internal/preprocess"
	"github.com/lehigh-university-libraries/snapcard/internal/prompt"
	"github.com/lehigh-university-libraries/snapcard/internal/render"
)

const sampleResponse = "```json\n{\"meta\":{\"content_type\":\"概念解释\",\"confidence\":95,\"source_hint\":\"test\"},\"card\":{\"tag\":\"t\",\"title\":\"T\",\"read_time\":\"1分钟\",\"sections\":[{\"type\":\"highlight\",\"content\":\"H\"}]}}\n```"

var fixedNow = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

type fakeAnalyzer struct {
	calls  int
	image  []byte
	prompt string
	text   string
	err    error
}

func (f *fakeAnalyzer) Invoke(ctx context.Context, image []byte, prompt string) (string, error) {
	f.calls++
	f.image = image
	f.prompt = prompt
	return f.text, f.err
}

type fakeCompressor struct {
	calls int
}

func (c *fakeCompressor) Compress(in, out string, quality, maxWidth, maxHeight int) (int64, int64, error) {
	c.calls++
	if err := os.WriteFile(out, []byte("small"), 0644); err != nil {
		return 0, 0, err
	}
	info, _ := os.Stat(in)
	return info.Size(), 5, nil
}

type fakeLinks struct {
	urls []string
}

func (f *fakeLinks) Check(ctx context.Context, urls []string) []linkcheck.Result {
	f.urls = urls
	return []linkcheck.Result{{URL: urls[0], Status: 404}}
}

type fakePublisher struct {
	paths []string
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, paths ...string) ([]string, error) {
	f.paths = paths
	if f.err != nil {
		return nil, f.err
	}
	return []string{"s3://bucket/card"}, nil
}

type unreachableSource struct{}

func (unreachableSource) Examples() ([]prompt.FewShotExample, error) {
	return nil, errors.New("dial tcp: connection refused")
}

type fixture struct {
	t          *testing.T
	tmp        string
	outDir     string
	image      string
	analyzer   *fakeAnalyzer
	compressor *fakeCompressor
	opts       Options
	states     []State
	threshold  float64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	inDir := t.TempDir()
	image := filepath.Join(inDir, "shot.png")
	require.NoError(t, os.WriteFile(image, []byte("\x89PNG\r\n\x1a\nfake"), 0644))

	f := &fixture{
		t:          t,
		tmp:        tmp,
		outDir:     filepath.Join(t.TempDir(), "output"),
		image:      image,
		analyzer:   &fakeAnalyzer{text: sampleResponse},
		compressor: &fakeCompressor{},
		threshold:  0.5,
	}
	f.opts = Options{
		SaveAnalysisJSON: true,
		Instructions:     "BASE",
		Now:              func() time.Time { return fixedNow },
	}
	return f
}

func (f *fixture) pipeline() *Pipeline {
	f.t.Helper()
	renderer, err := render.New()
	require.NoError(f.t, err)
	opts := f.opts
	opts.OutputDir = f.outDir
	opts.OnTransition = func(s State) { f.states = append(f.states, s) }
	gate := preprocess.NewGate(f.compressor, preprocess.Options{Quality: 85, MaxWidth: 1080, MaxHeight: 1920, ThresholdMB: f.threshold})
	return New(gate, f.analyzer, renderer, opts)
}

func (f *fixture) outputFiles() []string {
	entries, err := os.ReadDir(f.outDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(f.t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (f *fixture) assertWorkDirsRemoved() {
	f.t.Helper()
	entries, err := os.ReadDir(f.tmp)
	require.NoError(f.t, err)
	for _, e := range entries {
		assert.False(f.t, strings.HasPrefix(e.Name(), "snapcard-"), "leftover working dir %s", e.Name())
	}
}

func TestRunSampleResponse(t *testing.T) {
	f := newFixture(t)

	res, err := f.pipeline().Run(context.Background(), f.image)
	require.NoError(t, err)

	assert.Equal(t, 95, res.Record.Meta.Confidence)
	require.Len(t, res.Record.Card.Sections, 1)
	assert.Equal(t, card.Highlight{Content: "H"}, res.Record.Card.Sections[0])

	doc, err := os.ReadFile(res.CardPath)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "H")
	assert.Contains(t, string(doc), "<h1>T</h1>")

	assert.Equal(t, filepath.Join(f.outDir, "shot_20250601_083000.html"), res.CardPath)
	assert.Equal(t, filepath.Join(f.outDir, "shot_20250601_083000_analysis.json"), res.AnalysisPath)
	assert.ElementsMatch(t, []string{"shot_20250601_083000.html", "shot_20250601_083000_analysis.json"}, f.outputFiles())

	saved, err := os.ReadFile(res.AnalysisPath)
	require.NoError(t, err)
	reloaded, err := card.Extract(string(saved))
	require.NoError(t, err)
	assert.Equal(t, res.Record, reloaded)

	assert.Equal(t, []State{StateStart, StatePreprocessed, StateAnalyzed, StateExtracted, StateRendered, StateDone}, f.states)
	assert.Equal(t, 1, f.analyzer.calls)
	assert.Equal(t, 0, f.compressor.calls)
	f.assertWorkDirsRemoved()
}

func TestRunMissingCardProducesNoDocument(t *testing.T) {
	f := newFixture(t)
	f.analyzer.text = `{"meta":{"content_type":"x","confidence":50,"source_hint":"y"}}`

	res, err := f.pipeline().Run(context.Background(), f.image)
	require.Error(t, err)
	assert.Nil(t, res)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, StageExtract, failure.Stage)
	assert.True(t, domain.IsKind(err, domain.KindMalformedResponse))
	assert.ErrorIs(t, err, card.ErrMissingCard)

	assert.Empty(t, f.outputFiles())
	assert.Equal(t, StateFailed, f.states[len(f.states)-1])
	f.assertWorkDirsRemoved()
}

func TestRunUnreachableExamplesUsesBasePrompt(t *testing.T) {
	f := newFixture(t)
	f.opts.Examples = unreachableSource{}

	res, err := f.pipeline().Run(context.Background(), f.image)
	require.NoError(t, err)

	assert.Equal(t, "BASE", f.analyzer.prompt)
	assert.FileExists(t, res.CardPath)
}

func TestRunLargeImageIsCompressedOnce(t *testing.T) {
	f := newFixture(t)
	f.threshold = 0.000001

	res, err := f.pipeline().Run(context.Background(), f.image)
	require.NoError(t, err)

	assert.True(t, res.Compressed)
	assert.Equal(t, 1, f.compressor.calls)
	assert.Equal(t, []byte("small"), f.analyzer.image)
}

func TestRunSmallImageSentUnchanged(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline().Run(context.Background(), f.image)
	require.NoError(t, err)

	orig, _ := os.ReadFile(f.image)
	assert.Equal(t, orig, f.analyzer.image)
}

func TestRunFailureStages(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture)
		stage   Stage
		kind    domain.Kind
		invoked int
	}{
		{
			name:  "missing image",
			setup: func(f *fixture) { f.image = filepath.Join(f.tmp, "nope.png") },
			stage: StageInput,
			kind:  domain.KindInput,
		},
		{
			name:  "directory as image",
			setup: func(f *fixture) { f.image = f.tmp },
			stage: StageInput,
			kind:  domain.KindInput,
		},
		{
			name:    "backend error",
			setup:   func(f *fixture) { f.analyzer.err = domain.BackendError("analysis request failed", errors.New("401")) },
			stage:   StageAnalyze,
			kind:    domain.KindBackend,
			invoked: 1,
		},
		{
			name:    "out of range confidence",
			setup:   func(f *fixture) { f.analyzer.text = strings.Replace(sampleResponse, "95", "101", 1) },
			stage:   StageExtract,
			kind:    domain.KindMalformedResponse,
			invoked: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			_, err := f.pipeline().Run(context.Background(), f.image)
			require.Error(t, err)

			var failure *Failure
			require.True(t, errors.As(err, &failure))
			assert.Equal(t, tt.stage, failure.Stage)
			assert.True(t, domain.IsKind(err, tt.kind))
			assert.Equal(t, tt.invoked, f.analyzer.calls)
			assert.Empty(t, f.outputFiles())
			f.assertWorkDirsRemoved()
		})
	}
}

func TestRunWriteFailureLeavesNothing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.outDir, []byte("not a dir"), 0644))

	_, err := f.pipeline().Run(context.Background(), f.image)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, StageWrite, failure.Stage)
	f.assertWorkDirsRemoved()
}

func TestRunCardWriteFailureRemovesAnalysis(t *testing.T) {
	f := newFixture(t)
	// A non-empty directory where the card should go makes the final rename fail
	// after the analysis JSON is already in place.
	blocker := filepath.Join(f.outDir, "shot_20250601_083000.html")
	require.NoError(t, os.MkdirAll(blocker, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(blocker, "keep"), []byte("x"), 0644))

	res, err := f.pipeline().Run(context.Background(), f.image)
	require.Error(t, err)
	assert.Nil(t, res)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, StageWrite, failure.Stage)
	assert.Equal(t, []string{"shot_20250601_083000.html"}, f.outputFiles())
	assert.NoFileExists(t, filepath.Join(f.outDir, "shot_20250601_083000_analysis.json"))
	assert.Equal(t, StateFailed, f.states[len(f.states)-1])
	f.assertWorkDirsRemoved()
}

func TestRunWithoutAnalysisJSON(t *testing.T) {
	f := newFixture(t)
	f.opts.SaveAnalysisJSON = false

	res, err := f.pipeline().Run(context.Background(), f.image)
	require.NoError(t, err)
	assert.Empty(t, res.AnalysisPath)
	assert.Equal(t, []string{"shot_20250601_083000.html"}, f.outputFiles())
}

func TestRunLinksAndPublishing(t *testing.T) {
	f := newFixture(t)
	links := &fakeLinks{}
	pub := &fakePublisher{}
	f.opts.Links = links
	f.opts.Publisher = pub
	f.analyzer.text = strings.Replace(sampleResponse, `"content":"H"`, `"content":"see https://example.test/x"`, 1)

	res, err := f.pipeline().Run(context.Background(), f.image)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.test/x"}, links.urls)
	require.Len(t, res.BrokenLinks, 1)
	assert.Equal(t, []string{res.CardPath, res.AnalysisPath}, pub.paths)
	assert.Equal(t, []string{"s3://bucket/card"}, res.Published)
}

func TestRunPublishFailureKeepsCard(t *testing.T) {
	f := newFixture(t)
	f.opts.Publisher = &fakePublisher{err: errors.New("no credentials")}

	res, err := f.pipeline().Run(context.Background(), f.image)
	require.NoError(t, err)
	assert.FileExists(t, res.CardPath)
	assert.Empty(t, res.Published)
}

func TestOutputNames(t *testing.T) {
	cardName, analysisName := OutputNames("/in/my.screenshot.PNG", fixedNow)
	assert.Equal(t, "my.screenshot_20250601_083000.html", cardName)
	assert.Equal(t, "my.screenshot_20250601_083000_analysis.json", analysisName)
}

func TestRunFailureLogsRawResponse(t *testing.T) {
	var logs bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(orig) })

	f := newFixture(t)
	f.analyzer.text = "Sorry, I cannot describe this screenshot."

	_, err := f.pipeline().Run(context.Background(), f.image)
	require.Error(t, err)
	assert.Contains(t, logs.String(), `"raw_response":"Sorry, I cannot describe this screenshot."`)
	assert.Contains(t, logs.String(), `"stage":"extract"`)
}
