package card

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/snapcard/internal/domain"
)

const fence = "```"

var (
	ErrMismatchedFence   = errors.New("mismatched code fence")
	ErrMissingMeta       = errors.New("missing meta")
	ErrMissingCard       = errors.New("missing card")
	ErrMissingConfidence = errors.New("missing meta.confidence")
	ErrConfidenceRange   = errors.New("meta.confidence out of range")
	ErrNoSections        = errors.New("card.sections is empty")
	ErrMissingCardField  = errors.New("missing required card field")
)

type wireRecord struct {
	Meta *wireMeta `json:"meta"`
	Card *Card     `json:"card"`
}

type wireMeta struct {
	ContentType string `json:"content_type"`
	Confidence  *int   `json:"confidence"`
	SourceHint  string `json:"source_hint"`
}

// Extract recovers a validated Record from raw backend text. The only
// cleanup applied is trimming whitespace and removing one surrounding code
// fence; anything else that fails to decode is rejected.
func Extract(raw string) (*Record, error) {
	body, err := StripFence(raw)
	if err != nil {
		return nil, domain.MalformedResponseError("failed to strip response fence", raw, err)
	}

	var w wireRecord
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return nil, domain.MalformedResponseError("failed to parse analysis JSON", raw, err)
	}

	rec, err := w.record()
	if err != nil {
		return nil, domain.MalformedResponseError("analysis failed validation", raw, err)
	}
	return rec, nil
}

// StripFence trims text and removes an opening ``` (optionally tagged json)
// and a closing ```. Exactly one of the two being present is an error.
func StripFence(raw string) (string, error) {
	text := strings.TrimSpace(raw)

	opened := false
	if strings.HasPrefix(text, fence) {
		opened = true
		text = text[len(fence):]
		if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
			text = text[4:]
		}
	}

	closed := false
	if strings.HasSuffix(text, fence) {
		closed = true
		text = text[:len(text)-len(fence)]
	}

	if opened != closed {
		return "", ErrMismatchedFence
	}
	return strings.TrimSpace(text), nil
}

func (w wireRecord) record() (*Record, error) {
	if w.Meta == nil {
		return nil, ErrMissingMeta
	}
	if w.Card == nil {
		return nil, ErrMissingCard
	}
	if w.Meta.Confidence == nil {
		return nil, ErrMissingConfidence
	}

	rec := &Record{
		Meta: Meta{
			ContentType: w.Meta.ContentType,
			Confidence:  *w.Meta.Confidence,
			SourceHint:  w.Meta.SourceHint,
		},
		Card: *w.Card,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate checks the record invariants, stopping at the first violation.
func (r *Record) Validate() error {
	if r.Meta.Confidence < 0 || r.Meta.Confidence > 100 {
		return fmt.Errorf("%w: %d", ErrConfidenceRange, r.Meta.Confidence)
	}
	switch {
	case r.Card.Tag == "":
		return fmt.Errorf("%w: tag", ErrMissingCardField)
	case r.Card.Title == "":
		return fmt.Errorf("%w: title", ErrMissingCardField)
	case r.Card.ReadTime == "":
		return fmt.Errorf("%w: read_time", ErrMissingCardField)
	}
	if len(r.Card.Sections) == 0 {
		return ErrNoSections
	}
	return nil
}
