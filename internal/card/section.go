package card

import (
	"encoding/json"
	"fmt"
)

// Section kinds understood by the renderer. Anything else decodes to Other.
const (
	KindHighlight   = "highlight"
	KindExplanation = "explanation"
	KindList        = "list"
	KindQuote       = "quote"
	KindInsight     = "insight"
	KindExample     = "example"
	KindQuestion    = "question"
	KindOther       = "other"
)

// Section is one display block of a card. The set of implementations is
// closed to this package.
type Section interface {
	Kind() string
	section()
}

type Highlight struct {
	Content string
}

type Explanation struct {
	Title   string
	Content string
}

type List struct {
	Title string
	Items []string
}

type Quote struct {
	Content string
}

type Insight struct {
	Content string
}

type Example struct {
	Title   string
	Content string
}

type Question struct {
	Title   string
	Content string
}

// Other holds a section whose kind is not recognized. Type keeps the
// original tag so the record serializes back unchanged.
type Other struct {
	Type    string
	Title   string
	Content string
}

func (Highlight) Kind() string   { return KindHighlight }
func (Explanation) Kind() string { return KindExplanation }
func (List) Kind() string        { return KindList }
func (Quote) Kind() string       { return KindQuote }
func (Insight) Kind() string     { return KindInsight }
func (Example) Kind() string     { return KindExample }
func (Question) Kind() string    { return KindQuestion }
func (o Other) Kind() string     { return o.Type }

func (Highlight) section()   {}
func (Explanation) section() {}
func (List) section()        {}
func (Quote) section()       {}
func (Insight) section()     {}
func (Example) section()     {}
func (Question) section()    {}
func (Other) section()       {}

// Sections is the ordered section list of a card.
type Sections []Section

type sectionJSON struct {
	Type    string   `json:"type"`
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content,omitempty"`
	Items   []string `json:"items,omitempty"`
}

func (s Sections) MarshalJSON() ([]byte, error) {
	out := make([]sectionJSON, 0, len(s))
	for i, sec := range s {
		w, err := encodeSection(sec)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
		out = append(out, w)
	}
	return json.Marshal(out)
}

func (s *Sections) UnmarshalJSON(data []byte) error {
	var raw []sectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Sections, 0, len(raw))
	for _, w := range raw {
		out = append(out, decodeSection(w))
	}
	*s = out
	return nil
}

func encodeSection(sec Section) (sectionJSON, error) {
	switch v := sec.(type) {
	case Highlight:
		return sectionJSON{Type: KindHighlight, Content: v.Content}, nil
	case Explanation:
		return sectionJSON{Type: KindExplanation, Title: v.Title, Content: v.Content}, nil
	case List:
		return sectionJSON{Type: KindList, Title: v.Title, Items: v.Items}, nil
	case Quote:
		return sectionJSON{Type: KindQuote, Content: v.Content}, nil
	case Insight:
		return sectionJSON{Type: KindInsight, Content: v.Content}, nil
	case Example:
		return sectionJSON{Type: KindExample, Title: v.Title, Content: v.Content}, nil
	case Question:
		return sectionJSON{Type: KindQuestion, Title: v.Title, Content: v.Content}, nil
	case Other:
		return sectionJSON{Type: v.Type, Title: v.Title, Content: v.Content}, nil
	default:
		return sectionJSON{}, fmt.Errorf("unsupported section %T", sec)
	}
}

func decodeSection(w sectionJSON) Section {
	switch w.Type {
	case KindHighlight:
		return Highlight{Content: w.Content}
	case KindExplanation:
		return Explanation{Title: w.Title, Content: w.Content}
	case KindList:
		return List{Title: w.Title, Items: w.Items}
	case KindQuote:
		return Quote{Content: w.Content}
	case KindInsight:
		return Insight{Content: w.Content}
	case KindExample:
		return Example{Title: w.Title, Content: w.Content}
	case KindQuestion:
		return Question{Title: w.Title, Content: w.Content}
	default:
		return Other{Type: w.Type, Title: w.Title, Content: w.Content}
	}
}
