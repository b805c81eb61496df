package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FewShotExample is one illustrative screenshot with a bad and a good
// answer. GoodOutput holds record-shaped JSON and is not validated.
type FewShotExample struct {
	Category          string          `json:"category"`
	ScreenshotContent string          `json:"screenshot_content"`
	BadOutputExample  string          `json:"bad_output_example"`
	GoodOutputExample json.RawMessage `json:"good_output_example"`
	WhyGood           []string        `json:"why_good"`
}

// ExampleSource supplies few-shot examples in source order.
type ExampleSource interface {
	Examples() ([]FewShotExample, error)
}

type exampleDocument struct {
	FewShotExamples struct {
		GoodExamples []FewShotExample `json:"good_examples"`
	} `json:"few_shot_examples"`
}

type yamlExample struct {
	Category          string   `yaml:"category"`
	ScreenshotContent string   `yaml:"screenshot_content"`
	BadOutputExample  string   `yaml:"bad_output_example"`
	GoodOutputExample any      `yaml:"good_output_example"`
	WhyGood           []string `yaml:"why_good"`
}

type yamlDocument struct {
	FewShotExamples struct {
		GoodExamples []yamlExample `yaml:"good_examples"`
	} `yaml:"few_shot_examples"`
}

// FileSource reads examples from a JSON or YAML file, chosen by extension.
// The file is read on every call.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Examples() ([]FewShotExample, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read examples: %w", err)
	}

	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		var doc exampleDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse examples: %w", err)
		}
		return doc.FewShotExamples.GoodExamples, nil
	}
}

func decodeYAML(data []byte) ([]FewShotExample, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse examples: %w", err)
	}

	out := make([]FewShotExample, 0, len(doc.FewShotExamples.GoodExamples))
	for _, ex := range doc.FewShotExamples.GoodExamples {
		good, err := marshalNoEscape(ex.GoodOutputExample)
		if err != nil {
			return nil, fmt.Errorf("failed to convert example %q: %w", ex.Category, err)
		}
		out = append(out, FewShotExample{
			Category:          ex.Category,
			ScreenshotContent: ex.ScreenshotContent,
			BadOutputExample:  ex.BadOutputExample,
			GoodOutputExample: good,
			WhyGood:           ex.WhyGood,
		})
	}
	return out, nil
}

func marshalNoEscape(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
