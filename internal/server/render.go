package server

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/valpere/wordweaver/internal/markdown"
)

//go:embed templates/*.html
var templateFS embed.FS

type renderer struct {
	tmpl *template.Template
}

func newRenderer() (*renderer, error) {
	funcs := template.FuncMap{
		// md renders model-written markdown; raw HTML is dropped by ToHTML.
		"md": func(s string) template.HTML {
			return template.HTML(markdown.ToHTML([]byte(s)))
		},
		"score": func(v any) string {
			return fmt.Sprintf("%.2f", v)
		},
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &renderer{tmpl: tmpl}, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}
