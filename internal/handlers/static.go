package handlers

import (
	_ "embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/index.html.tmpl
var indexTemplate string

var indexPage = template.Must(template.New("index").Parse(indexTemplate))

// HandleIndex shows the upload form and the cards generated so far.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.Execute(w, h.store.List()); err != nil {
		slog.Error("Unable to render index", "err", err)
	}
}
