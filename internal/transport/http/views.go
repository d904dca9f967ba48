package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"quiz-hosting/internal/config"
	"quiz-hosting/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer turns typed view values into HTML. Templates hold no logic
// beyond iteration and the imageURL helper.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates. publicURL prefixes image keys.
func NewRenderer(publicURL string) *Renderer {
	base := strings.TrimRight(publicURL, "/")
	funcs := template.FuncMap{
		"imageURL": func(key string) string {
			return base + "/" + url.PathEscape(key)
		},
	}
	return &Renderer{
		tmpl: template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
	}
}

// Render executes the named template into a buffer so a template error
// still produces a clean 500.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		config.WithContext(r.Context()).WithError(err).WithField("template", name).Error("render failed")
		http.Error(w, "Erreur interne.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type indexView struct {
	Quizzes []domain.Quiz
}

type quizView struct {
	Quiz      domain.Quiz
	Questions []domain.Question
}

type resultView struct {
	Quiz   domain.Quiz
	Score  int
	Pseudo string
}

type scoresView struct {
	Quiz   domain.Quiz
	Scores []domain.Score
}
