package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/snapcard/internal/linkcheck"
)

// TimestampLayout names report files.
const TimestampLayout = "2006-01-02_15-04-05"

// RunConfig records the settings a batch ran with
type RunConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	InputDir    string  `yaml:"inputdir"`
	OutputDir   string  `yaml:"outputdir"`
	Concurrency int     `yaml:"concurrency"`
	Timestamp   string  `yaml:"timestamp"`
}

// Entry is the outcome for one screenshot
type Entry struct {
	Image       string             `yaml:"image"`
	CardPath    string             `yaml:"cardpath,omitempty"`
	Title       string             `yaml:"title,omitempty"`
	ContentType string             `yaml:"contenttype,omitempty"`
	Confidence  int                `yaml:"confidence,omitempty"`
	Compressed  bool               `yaml:"compressed,omitempty"`
	FailedStage string             `yaml:"failedstage,omitempty"`
	ErrorKind   string             `yaml:"errorkind,omitempty"`
	Error       string             `yaml:"error,omitempty"`
	RawResponse string             `yaml:"rawresponse,omitempty"`
	BrokenLinks []linkcheck.Result `yaml:"brokenlinks,omitempty"`
	DurationMS  int64              `yaml:"durationms"`
}

func (e Entry) Failed() bool {
	return e.Error != ""
}

// Batch is the complete report written after a batch run
type Batch struct {
	Config    RunConfig `yaml:"config"`
	Succeeded int       `yaml:"succeeded"`
	Failed    int       `yaml:"failed"`
	Results   []Entry   `yaml:"results"`
}

// New builds a report from entries, counting outcomes.
func New(cfg RunConfig, entries []Entry) *Batch {
	b := &Batch{Config: cfg, Results: entries}
	for _, e := range entries {
		if e.Failed() {
			b.Failed++
		} else {
			b.Succeeded++
		}
	}
	return b
}

// SaveToYAML writes the report to dir/batch-<timestamp>.yaml and returns its path.
func SaveToYAML(dir string, b *Batch, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	if b.Config.Timestamp == "" {
		b.Config.Timestamp = at.Format(TimestampLayout)
	}

	data, err := yaml.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("batch-%s.yaml", at.Format(TimestampLayout)))
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}
	return filename, nil
}

// Load reads a report written by SaveToYAML.
func Load(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &b, nil
}
