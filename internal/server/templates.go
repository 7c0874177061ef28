package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"atsmatch/internal/formatters"
	"atsmatch/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(
	template.New("pages").
		Funcs(template.FuncMap{
			"score":   formatters.Score,
			"percent": formatters.Percent,
		}).
		ParseFS(templateFS, "templates/*.html"),
)

// resultPage is the data behind index.html and result.html
type resultPage struct {
	Provider types.ProviderInfo
	Outcome  *types.MatchOutcome
	RawJSON  string
	Error    string
}

// renderHTML executes into a buffer so a template failure never sends a half page
func (s *Server) renderHTML(w http.ResponseWriter, status int, name string, page resultPage) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, page); err != nil {
		s.Logger.LogError(err, "Failed to render template", "template", name)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.Logger.LogError(err, "Failed to write page")
	}
}
