package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/snapcard/internal/analysis"
	"github.com/lehigh-university-libraries/snapcard/internal/domain"
	"github.com/lehigh-university-libraries/snapcard/internal/images"
	"github.com/lehigh-university-libraries/snapcard/internal/pipeline"
	"github.com/lehigh-university-libraries/snapcard/internal/report"
	"github.com/lehigh-university-libraries/snapcard/internal/ui"
)

func newBatchCmd() *cobra.Command {
	var (
		concurrency int
		reportDir   string
	)

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Generate cards for every screenshot in a directory",
		Long: `Runs one independent card pipeline per screenshot in a directory.

A failed screenshot never stops the others. A YAML report of every outcome
is written to the report directory when the batch finishes.`,
		Example: `  # Process ./input with the configured concurrency
  snapcard batch input

  # Four at a time
  snapcard batch screenshots --concurrency 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if concurrency <= 0 {
				concurrency = cfg.Batch.Concurrency
			}

			files, err := listImages(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				ui.Warning("No supported images in %s", args[0])
				return nil
			}

			p, err := newPipeline(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}

			startedAt := time.Now()
			slog.Info("Starting batch", "dir", args[0], "images", len(files), "concurrency", concurrency)

			entries := make([]report.Entry, len(files))
			bar := ui.NewProgressBar(int64(len(files)), "Generating cards")

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(concurrency)
			for i, file := range files {
				g.Go(func() error {
					result, err := p.Run(ctx, file)
					entries[i] = entryFor(file, result, err)
					bar.Increment()
					return nil
				})
			}
			_ = g.Wait()
			bar.Finish()

			b := report.New(report.RunConfig{
				Provider:    cfg.API.Provider,
				Model:       analysis.Params(cfg.API).Model,
				Temperature: cfg.API.Temperature,
				InputDir:    args[0],
				OutputDir:   cfg.Output.Dir,
				Concurrency: concurrency,
				Timestamp:   startedAt.Format(time.RFC3339),
			}, entries)

			path, err := report.SaveToYAML(reportDir, b, startedAt)
			if err != nil {
				return err
			}

			ui.Success("%d of %d cards generated in %s", b.Succeeded, len(files), time.Since(startedAt).Round(time.Second))
			if b.Failed > 0 {
				ui.Warning("%d screenshots failed, see report", b.Failed)
			}
			ui.Info("Report saved to %s", path)
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "Concurrent pipelines (default batch.concurrency)")
	cmd.Flags().StringVar(&reportDir, "report-dir", "reports", "Directory for the batch report")

	return cmd
}

// listImages returns the supported image files directly inside dir, sorted.
// Cards are named after the file stem, so only the first file of each stem
// is kept.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && images.IsSupported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	seen := make(map[string]string, len(names))
	var files []string
	for _, name := range names {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if first, ok := seen[stem]; ok {
			slog.Warn("Skipping image with duplicate name", "image", name, "kept", first)
			ui.Warning("Skipping %s: its card would overwrite the one for %s", name, first)
			continue
		}
		seen[stem] = name
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

func entryFor(file string, result *pipeline.Result, err error) report.Entry {
	entry := report.Entry{Image: filepath.Base(file)}
	if err != nil {
		entry.Error = err.Error()
		var failure *pipeline.Failure
		if errors.As(err, &failure) {
			entry.FailedStage = string(failure.Stage)
		}
		var de *domain.Error
		if errors.As(err, &de) {
			entry.ErrorKind = string(de.Kind)
			entry.RawResponse = de.Raw
		}
		return entry
	}

	entry.CardPath = result.CardPath
	entry.Title = result.Record.Card.Title
	entry.ContentType = result.Record.Meta.ContentType
	entry.Confidence = result.Record.Meta.Confidence
	entry.Compressed = result.Compressed
	entry.BrokenLinks = result.BrokenLinks
	entry.DurationMS = result.Duration.Milliseconds()
	return entry
}
