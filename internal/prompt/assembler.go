package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// MaxExamples caps how many examples are appended, taken in source order.
const MaxExamples = 3

// Build appends up to MaxExamples examples from src to base. When src is nil,
// unreadable or malformed the failure is logged and base is returned as is.
func Build(base string, src ExampleSource) string {
	if src == nil {
		return base
	}

	examples, err := src.Examples()
	if err != nil {
		slog.Warn("Few-shot examples unavailable, using base instructions", "err", err)
		return base
	}
	if len(examples) == 0 {
		return base
	}
	if len(examples) > MaxExamples {
		examples = examples[:MaxExamples]
	}

	section, err := renderExamples(examples)
	if err != nil {
		slog.Warn("Few-shot examples malformed, using base instructions", "err", err)
		return base
	}
	return base + section
}

func renderExamples(examples []FewShotExample) (string, error) {
	var sb strings.Builder
	sb.WriteString("\n\n## Reference examples\n\n")

	for i, ex := range examples {
		var good bytes.Buffer
		if err := json.Indent(&good, ex.GoodOutputExample, "", "  "); err != nil {
			return "", fmt.Errorf("example %d (%s): %w", i+1, ex.Category, err)
		}

		fmt.Fprintf(&sb, "### Example %d: %s\n\n", i+1, ex.Category)
		fmt.Fprintf(&sb, "**Screenshot**: %s\n\n", ex.ScreenshotContent)
		fmt.Fprintf(&sb, "**Bad output**: %s\n\n", ex.BadOutputExample)
		sb.WriteString("**Good output**:\n```json\n")
		sb.Write(good.Bytes())
		sb.WriteString("\n```\n\n")
		sb.WriteString("**Why it works**:\n")
		for _, reason := range ex.WhyGood {
			fmt.Fprintf(&sb, "- %s\n", reason)
		}
		sb.WriteString("\n---\n\n")
	}

	return sb.String(), nil
}
