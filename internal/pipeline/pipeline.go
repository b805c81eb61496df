package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/snapcard/internal/card"
	"github.com/lehigh-university-libraries/snapcard/internal/domain"
	"github.com/lehigh-university-libraries/snapcard/internal/linkcheck"
	"github.com/lehigh-university-libraries/snapcard/internal/preprocess"
	"github.com/lehigh-university-libraries/snapcard/internal/prompt"
	"github.com/lehigh-university-libraries/snapcard/internal/render"
)

// Preparer produces the working image for a run.
type Preparer interface {
	Prepare(src, workDir string) (preprocess.Result, error)
}

// Analyzer performs the backend call.
type Analyzer interface {
	Invoke(ctx context.Context, image []byte, prompt string) (string, error)
}

// LinkChecker verifies links and returns the broken ones.
type LinkChecker interface {
	Check(ctx context.Context, urls []string) []linkcheck.Result
}

// Publisher copies finished files elsewhere.
type Publisher interface {
	Publish(ctx context.Context, paths ...string) ([]string, error)
}

// Options configure a Pipeline. Examples, Links and Publisher are optional.
type Options struct {
	OutputDir        string
	SaveAnalysisJSON bool
	Instructions     string
	Examples         prompt.ExampleSource
	Links            LinkChecker
	Publisher        Publisher
	// OnTransition, when set, is called as the run enters each state.
	OnTransition func(State)
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result describes a completed run.
type Result struct {
	RunID        string
	ImageName    string
	Record       *card.Record
	CardPath     string
	AnalysisPath string
	Compressed   bool
	BrokenLinks  []linkcheck.Result
	Published    []string
	RenderedAt   time.Time
	Duration     time.Duration
}

// Pipeline turns one screenshot into one card. A Pipeline holds no per-run
// state and may be shared by concurrent runs.
type Pipeline struct {
	gate     Preparer
	analyzer Analyzer
	renderer *render.Renderer
	opts     Options
}

func New(gate Preparer, analyzer Analyzer, renderer *render.Renderer, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{gate: gate, analyzer: analyzer, renderer: renderer, opts: opts}
}

type run struct {
	p     *Pipeline
	state State
	log   *slog.Logger
}

func (r *run) enter(s State) {
	r.state = s
	r.log.Debug("Run state changed", "state", s)
	if r.p.opts.OnTransition != nil {
		r.p.opts.OnTransition(s)
	}
}

func (r *run) fail(stage Stage, err error) error {
	r.enter(StateFailed)
	var de *domain.Error
	if errors.As(err, &de) && de.Raw != "" {
		r.log.Error("Run failed", "stage", stage, "err", err, "raw_response", de.Raw)
	} else {
		r.log.Error("Run failed", "stage", stage, "err", err)
	}
	return &Failure{Stage: stage, Err: err}
}

// Run executes every stage once, in order, stopping at the first failure.
// Output files appear only when all stages succeed.
func (p *Pipeline) Run(ctx context.Context, imagePath string) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	r := &run{p: p, log: slog.With("run_id", runID, "image", imagePath)}
	r.enter(StateStart)

	info, err := os.Stat(imagePath)
	if err != nil {
		return nil, r.fail(StageInput, domain.InputError("image not readable", err))
	}
	if info.IsDir() {
		return nil, r.fail(StageInput, domain.InputError(imagePath+" is a directory", nil))
	}
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, r.fail(StageInput, domain.InputError("image not readable", err))
	}
	f.Close()

	workDir, err := os.MkdirTemp("", "snapcard-"+runID+"-")
	if err != nil {
		return nil, r.fail(StagePreprocess, domain.PreprocessingError("failed to create working dir", err))
	}
	defer os.RemoveAll(workDir)

	prepared, err := p.gate.Prepare(imagePath, workDir)
	if err != nil {
		return nil, r.fail(StagePreprocess, err)
	}
	image, err := os.ReadFile(prepared.Path)
	if err != nil {
		return nil, r.fail(StagePreprocess, domain.PreprocessingError("failed to read working image", err))
	}
	r.enter(StatePreprocessed)

	promptText := prompt.Build(p.opts.Instructions, p.opts.Examples)
	raw, err := p.analyzer.Invoke(ctx, image, promptText)
	if err != nil {
		return nil, r.fail(StageAnalyze, err)
	}
	r.enter(StateAnalyzed)

	rec, err := card.Extract(raw)
	if err != nil {
		return nil, r.fail(StageExtract, err)
	}
	r.enter(StateExtracted)

	result := &Result{
		RunID:      runID,
		ImageName:  filepath.Base(imagePath),
		Record:     rec,
		Compressed: prepared.Compressed,
		RenderedAt: p.opts.Now(),
	}

	if p.opts.Links != nil {
		if urls := linkcheck.ExtractURLs(rec.Texts()...); len(urls) > 0 {
			result.BrokenLinks = p.opts.Links.Check(ctx, urls)
		}
	}

	doc, err := p.renderer.Render(rec, result.ImageName, result.RenderedAt)
	if err != nil {
		return nil, r.fail(StageRender, err)
	}
	r.enter(StateRendered)

	if err := p.write(result, doc); err != nil {
		return nil, r.fail(StageWrite, err)
	}

	if p.opts.Publisher != nil {
		files := []string{result.CardPath}
		if result.AnalysisPath != "" {
			files = append(files, result.AnalysisPath)
		}
		locations, err := p.opts.Publisher.Publish(ctx, files...)
		if err != nil {
			r.log.Warn("Publishing failed, card kept locally", "err", err)
		}
		result.Published = locations
	}

	result.Duration = time.Since(started)
	r.enter(StateDone)
	r.log.Info("Card generated",
		"card", result.CardPath,
		"confidence", rec.Meta.Confidence,
		"sections", len(rec.Card.Sections),
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}

func (p *Pipeline) write(result *Result, doc string) error {
	if err := os.MkdirAll(p.opts.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	cardName, analysisName := OutputNames(result.ImageName, result.RenderedAt)

	if p.opts.SaveAnalysisJSON {
		data, err := MarshalRecord(result.Record)
		if err != nil {
			return fmt.Errorf("failed to marshal analysis: %w", err)
		}
		path, err := writeAtomic(p.opts.OutputDir, analysisName, data)
		if err != nil {
			return err
		}
		result.AnalysisPath = path
	}

	path, err := writeAtomic(p.opts.OutputDir, cardName, []byte(doc))
	if err != nil {
		if result.AnalysisPath != "" {
			err = errors.Join(err, os.Remove(result.AnalysisPath))
			result.AnalysisPath = ""
		}
		return err
	}
	result.CardPath = path
	return nil
}

// MarshalRecord encodes rec as indented JSON without HTML escaping.
func MarshalRecord(rec *card.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
