package preprocess

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/snapcard/internal/domain"
)

// DefaultThresholdMB applies when the threshold is negative, meaning unset.
const DefaultThresholdMB = 0.5

// Compressor shrinks the image at in and writes the result to out.
type Compressor interface {
	Compress(in, out string, quality, maxWidth, maxHeight int) (originalSize, compressedSize int64, err error)
}

// Options are the gate's processing parameters.
type Options struct {
	Quality     int
	MaxWidth    int
	MaxHeight   int
	ThresholdMB float64
}

// ThresholdBytes converts the configured megabyte threshold to bytes. A
// threshold of 0 compresses every non-empty image.
func (o Options) ThresholdBytes() int64 {
	mb := o.ThresholdMB
	if mb < 0 {
		mb = DefaultThresholdMB
	}
	return int64(mb * 1024 * 1024)
}

type Decision struct {
	Skip bool
}

// Decide skips compression for images no larger than the threshold.
func Decide(originalSizeBytes, thresholdBytes int64) Decision {
	return Decision{Skip: originalSizeBytes <= thresholdBytes}
}

// Result describes the working image produced by Prepare.
type Result struct {
	Path         string
	Compressed   bool
	OriginalSize int64
	WorkingSize  int64
}

type Gate struct {
	compressor Compressor
	opts       Options
}

func NewGate(c Compressor, opts Options) *Gate {
	return &Gate{compressor: c, opts: opts}
}

// Prepare produces exactly one working image for src inside workDir.
func (g *Gate) Prepare(src, workDir string) (Result, error) {
	info, err := os.Stat(src)
	if err != nil {
		return Result{}, domain.InputError("failed to stat image", err)
	}

	threshold := g.opts.ThresholdBytes()
	if Decide(info.Size(), threshold).Skip {
		dst := filepath.Join(workDir, "working"+strings.ToLower(filepath.Ext(src)))
		if err := copyFile(src, dst); err != nil {
			return Result{}, domain.PreprocessingError("failed to copy image", err)
		}
		slog.Debug("Compression skipped", "size", FormatSize(info.Size()), "threshold", FormatSize(threshold))
		return Result{Path: dst, OriginalSize: info.Size(), WorkingSize: info.Size()}, nil
	}

	dst := filepath.Join(workDir, "working.jpg")
	orig, compressed, err := g.compressor.Compress(src, dst, g.opts.Quality, g.opts.MaxWidth, g.opts.MaxHeight)
	if err != nil {
		_ = os.Remove(dst)
		return Result{}, domain.PreprocessingError("failed to compress image", err)
	}

	slog.Info("Image compressed",
		"original", FormatSize(orig),
		"compressed", FormatSize(compressed),
		"threshold", FormatSize(threshold))

	return Result{Path: dst, Compressed: true, OriginalSize: orig, WorkingSize: compressed}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
