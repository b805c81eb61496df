package archive

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/snapcard/internal/card"
)

// AnalysisSuffix identifies saved analysis files in an output directory.
const AnalysisSuffix = "_analysis.json"

// Row is one card flattened for columnar review
type Row struct {
	File         string `parquet:"file"`
	ContentType  string `parquet:"content_type"`
	Confidence   int64  `parquet:"confidence"`
	SourceHint   string `parquet:"source_hint"`
	Tag          string `parquet:"tag"`
	Title        string `parquet:"title"`
	ReadTime     string `parquet:"read_time"`
	SectionCount int64  `parquet:"section_count"`
	SectionKinds string `parquet:"section_kinds"`
	Background   string `parquet:"background"`
	Action       string `parquet:"action"`
}

// NewRow flattens rec. Section kinds are joined with commas in display order.
func NewRow(file string, rec *card.Record) Row {
	kinds := make([]string, 0, len(rec.Card.Sections))
	for _, s := range rec.Card.Sections {
		kinds = append(kinds, s.Kind())
	}
	row := Row{
		File:         file,
		ContentType:  rec.Meta.ContentType,
		Confidence:   int64(rec.Meta.Confidence),
		SourceHint:   rec.Meta.SourceHint,
		Tag:          rec.Card.Tag,
		Title:        rec.Card.Title,
		ReadTime:     rec.Card.ReadTime,
		SectionCount: int64(len(rec.Card.Sections)),
		SectionKinds: strings.Join(kinds, ","),
	}
	if sup := rec.Card.Supplement; sup != nil {
		row.Background = sup.Background
		row.Action = sup.Action
	}
	return row
}

// Collect reads every analysis file in dir, sorted by name. Files that no
// longer validate are skipped with a warning.
func Collect(dir string) ([]Row, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+AnalysisSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis files: %w", err)
	}
	sort.Strings(matches)

	rows := make([]Row, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		rec, err := card.Extract(string(data))
		if err != nil {
			slog.Warn("Skipping invalid analysis file", "path", path, "err", err)
			continue
		}
		rows = append(rows, NewRow(filepath.Base(path), rec))
	}

	slog.Debug("Collected analysis files", "dir", dir, "found", len(matches), "rows", len(rows))
	return rows, nil
}

// Write stores rows as a Parquet file at path.
func Write(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[Row](file)
	if _, err := writer.Write(rows); err != nil {
		file.Close()
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return file.Close()
}

// Read loads every row of a Parquet file written by Write.
func Read(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	return readRows(reader, pf.NumRows())
}

type rowReader interface {
	Read(rows []Row) (int, error)
}

// readRows drains r until io.EOF. Any other error is returned.
func readRows(r rowReader, sizeHint int64) ([]Row, error) {
	rows := make([]Row, 0, sizeHint)
	batch := make([]Row, 64)
	for {
		n, err := r.Read(batch)
		rows = append(rows, batch[:n]...)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
}
