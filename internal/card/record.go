package card

// Meta describes how the backend classified the screenshot.
type Meta struct {
	ContentType string `json:"content_type"`
	Confidence  int    `json:"confidence"`
	SourceHint  string `json:"source_hint"`
}

// Supplement carries the optional trailing blocks of a card.
type Supplement struct {
	Background string `json:"background,omitempty"`
	Action     string `json:"action,omitempty"`
}

// Empty reports whether neither block has text.
func (s *Supplement) Empty() bool {
	return s == nil || (s.Background == "" && s.Action == "")
}

type Card struct {
	Tag        string      `json:"tag"`
	Title      string      `json:"title"`
	ReadTime   string      `json:"read_time"`
	Sections   Sections    `json:"sections"`
	Supplement *Supplement `json:"supplement,omitempty"`
}

// Record is a validated analysis result. Records returned by Extract
// must be treated as read-only.
type Record struct {
	Meta Meta `json:"meta"`
	Card Card `json:"card"`
}

// Texts returns every free-text value of the card in display order.
func (r *Record) Texts() []string {
	var out []string
	add := func(s string) {
		if s != "" {
			out = append(out, s)
		}
	}
	add(r.Card.Title)
	for _, sec := range r.Card.Sections {
		switch v := sec.(type) {
		case Highlight:
			add(v.Content)
		case Explanation:
			add(v.Title)
			add(v.Content)
		case List:
			add(v.Title)
			for _, item := range v.Items {
				add(item)
			}
		case Quote:
			add(v.Content)
		case Insight:
			add(v.Content)
		case Example:
			add(v.Title)
			add(v.Content)
		case Question:
			add(v.Title)
			add(v.Content)
		case Other:
			add(v.Title)
			add(v.Content)
		}
	}
	if r.Card.Supplement != nil {
		add(r.Card.Supplement.Background)
		add(r.Card.Supplement.Action)
	}
	return out
}
