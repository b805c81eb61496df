package render

import (
	"bytes"
	_ "embed"
	"errors"
	"html/template"
	"time"

	"github.com/lehigh-university-libraries/snapcard/internal/card"
	"github.com/lehigh-university-libraries/snapcard/internal/domain"
)

// TimestampLayout is how the render time appears in the card footer.
const TimestampLayout = "2006-01-02 15:04:05"

//go:embed templates/card.html.tmpl
var cardTemplate string

// Renderer turns records into standalone HTML documents. It holds no state
// besides the parsed template, so Render output depends only on its arguments.
type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("card").Parse(cardTemplate)
	if err != nil {
		return nil, domain.RenderError("failed to parse card template", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type sectionView struct {
	Kind    string
	Class   string
	Title   string
	Content string
	Items   []string
}

type cardView struct {
	Title       string
	Tag         string
	ReadTime    string
	ContentType string
	SourceHint  string
	Sections    []sectionView
	Background  string
	Action      string
	ImageName   string
	RenderedAt  string
}

// Render produces the HTML document for rec.
func (r *Renderer) Render(rec *card.Record, imageName string, renderedAt time.Time) (string, error) {
	if rec == nil {
		return "", domain.RenderError("nothing to render", errors.New("nil record"))
	}

	view := cardView{
		Title:       rec.Card.Title,
		Tag:         rec.Card.Tag,
		ReadTime:    rec.Card.ReadTime,
		ContentType: rec.Meta.ContentType,
		SourceHint:  rec.Meta.SourceHint,
		Sections:    make([]sectionView, 0, len(rec.Card.Sections)),
		ImageName:   imageName,
		RenderedAt:  renderedAt.Format(TimestampLayout),
	}
	for _, s := range rec.Card.Sections {
		view.Sections = append(view.Sections, viewSection(s))
	}
	if sup := rec.Card.Supplement; sup != nil {
		view.Background = sup.Background
		view.Action = sup.Action
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", domain.RenderError("failed to execute card template", err)
	}
	return buf.String(), nil
}

func viewSection(s card.Section) sectionView {
	switch v := s.(type) {
	case card.Highlight:
		return plain(card.KindHighlight, v.Content)
	case card.Insight:
		return plain(card.KindInsight, v.Content)
	case card.Quote:
		return sectionView{Kind: "quote", Class: card.KindQuote, Content: v.Content}
	case card.List:
		return sectionView{Kind: "list", Class: card.KindList, Title: v.Title, Items: v.Items}
	case card.Explanation:
		return titled(card.KindExplanation, v.Title, v.Content)
	case card.Example:
		return titled(card.KindExample, v.Title, v.Content)
	case card.Question:
		return titled(card.KindQuestion, v.Title, v.Content)
	case card.Other:
		return other(v)
	default:
		return sectionView{Kind: "plain", Class: card.KindOther}
	}
}

func plain(class, content string) sectionView {
	return sectionView{Kind: "plain", Class: class, Content: content}
}

func titled(class, title, content string) sectionView {
	return sectionView{Kind: "titled", Class: class, Title: title, Content: content}
}

// other renders unknown kinds as plain content and ignores any title.
func other(o card.Other) sectionView {
	return plain(card.KindOther, o.Content)
}
