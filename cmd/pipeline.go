package cmd

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/snapcard/internal/analysis"
	"github.com/lehigh-university-libraries/snapcard/internal/config"
	"github.com/lehigh-university-libraries/snapcard/internal/linkcheck"
	"github.com/lehigh-university-libraries/snapcard/internal/pipeline"
	"github.com/lehigh-university-libraries/snapcard/internal/preprocess"
	"github.com/lehigh-university-libraries/snapcard/internal/prompt"
	"github.com/lehigh-university-libraries/snapcard/internal/publish"
	"github.com/lehigh-university-libraries/snapcard/internal/render"
)

// newPipeline wires every stage from cfg. onTransition may be nil.
func newPipeline(ctx context.Context, cfg *config.Config, onTransition func(pipeline.State)) (*pipeline.Pipeline, error) {
	instructions, err := prompt.LoadInstructions(cfg.Prompt.InstructionsPath)
	if err != nil {
		return nil, err
	}

	invoker, err := analysis.NewInvokerFromConfig(cfg.API)
	if err != nil {
		return nil, err
	}

	renderer, err := render.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load card template: %w", err)
	}

	gate := preprocess.NewGate(preprocess.NewJPEGCompressor(), preprocess.Options{
		Quality:     cfg.Processing.CompressQuality,
		MaxWidth:    cfg.Processing.TargetWidth,
		MaxHeight:   cfg.Processing.TargetHeight,
		ThresholdMB: cfg.Processing.SkipCompressThresholdMB,
	})

	opts := pipeline.Options{
		OutputDir:        cfg.Output.Dir,
		SaveAnalysisJSON: cfg.Output.SaveAnalysisJSON,
		Instructions:     instructions,
		OnTransition:     onTransition,
	}
	if cfg.Prompt.ExamplesPath != "" {
		opts.Examples = prompt.NewFileSource(cfg.Prompt.ExamplesPath)
	}
	if cfg.Output.VerifyLinks {
		opts.Links = linkcheck.NewChecker()
	}
	if cfg.Storage.S3.Enabled() {
		publisher, err := publish.NewS3Publisher(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, err
		}
		opts.Publisher = publisher
	}

	return pipeline.New(gate, invoker, renderer, opts), nil
}

// stageMessages are shown by the spinner when a run enters each state.
var stageMessages = map[pipeline.State]string{
	pipeline.StateStart:        "Preparing image...",
	pipeline.StatePreprocessed: "Analyzing screenshot...",
	pipeline.StateAnalyzed:     "Reading analysis...",
	pipeline.StateExtracted:    "Rendering card...",
	pipeline.StateRendered:     "Writing card...",
}
