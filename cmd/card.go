package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/snapcard/internal/domain"
	"github.com/lehigh-university-libraries/snapcard/internal/images"
	"github.com/lehigh-university-libraries/snapcard/internal/pipeline"
	"github.com/lehigh-university-libraries/snapcard/internal/preprocess"
	"github.com/lehigh-university-libraries/snapcard/internal/ui"
)

// defaultInputDir is searched when no image is given.
const defaultInputDir = "input"

func newCardCmd() *cobra.Command {
	var noOpen bool

	cmd := &cobra.Command{
		Use:   "card [image|url]",
		Short: "Generate a knowledge card from one screenshot",
		Long: `Generates a knowledge card from a single screenshot.

The image may be a local file or an http(s) URL. Without an argument the
first .jpg, .jpeg or .png file in ./input is used.`,
		Example: `  # Use the first screenshot in ./input
  snapcard card

  # A specific file
  snapcard card screenshots/thread.png

  # A remote image with a Gemini backend
  SNAPCARD_API_PROVIDER=gemini snapcard card https://example.com/shot.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			imagePath, cleanup, err := resolveInput(cmd, arg)
			if err != nil {
				return err
			}
			defer cleanup()

			info, err := os.Stat(imagePath)
			if err == nil {
				ui.Info("Using %s (%s)", imagePath, preprocess.FormatSize(info.Size()))
			}

			spinner := ui.NewSpinner("Starting...")
			spinner.Start()
			p, err := newPipeline(ctx, cfg, func(s pipeline.State) {
				if msg, ok := stageMessages[s]; ok {
					spinner.UpdateMessage(msg)
				}
			})
			if err != nil {
				spinner.Stop()
				return err
			}

			result, err := p.Run(ctx, imagePath)
			spinner.Stop()
			if err != nil {
				reportFailure(err)
				return err
			}

			ui.Success("Card saved to %s", result.CardPath)
			if result.AnalysisPath != "" {
				ui.Info("Analysis saved to %s", result.AnalysisPath)
			}
			ui.Info("%s (confidence %d%%)", result.Record.Card.Title, result.Record.Meta.Confidence)
			for _, l := range result.BrokenLinks {
				ui.Warning("Broken link %s (%s)", l.URL, brokenReason(l.Status, l.Error))
			}
			for _, loc := range result.Published {
				ui.Info("Published %s", loc)
			}

			if cfg.Output.AutoOpenBrowser && !noOpen {
				abs, err := filepath.Abs(result.CardPath)
				if err == nil {
					err = browser.OpenFile(abs)
				}
				if err != nil {
					slog.Warn("Unable to open card in browser", "card", result.CardPath, "err", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noOpen, "no-open", false, "Do not open the card in a browser even if output.auto_open_browser is set")

	return cmd
}

// resolveInput turns the command argument into a local image path. URLs
// are downloaded into a temporary directory removed by cleanup.
func resolveInput(cmd *cobra.Command, arg string) (string, func(), error) {
	noop := func() {}

	switch {
	case arg == "":
		path, err := firstImage(defaultInputDir)
		return path, noop, err
	case images.IsURL(arg):
		dir, err := os.MkdirTemp("", "snapcard-download-")
		if err != nil {
			return "", noop, fmt.Errorf("failed to create download dir: %w", err)
		}
		cleanup := func() { os.RemoveAll(dir) }

		ui.Info("Downloading %s", arg)
		path, err := images.NewFetcher().Download(cmd.Context(), arg, dir)
		if err != nil {
			cleanup()
			return "", noop, domain.InputError("failed to download image", err)
		}
		return path, cleanup, nil
	default:
		return arg, noop, nil
	}
}

// firstImage returns the first .jpg, .jpeg or .png file in dir by name.
func firstImage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", domain.InputError("no image given and input directory unreadable", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", domain.InputError(fmt.Sprintf("no .jpg, .jpeg or .png files in %s", dir), nil)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

func reportFailure(err error) {
	var failure *pipeline.Failure
	if errors.As(err, &failure) {
		ui.Error("Card generation failed during %s", failure.Stage)
	}
	var de *domain.Error
	if errors.As(err, &de) && de.Raw != "" {
		ui.Warning("Raw backend response:\n%s", de.Raw)
	}
}

func brokenReason(status int, errText string) string {
	if errText != "" {
		return errText
	}
	return fmt.Sprintf("HTTP %d", status)
}
