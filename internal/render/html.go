package render

import (
	"embed"
	"html/template"
	"io"
	"strings"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var htmlTemplates = template.Must(template.New("").Funcs(template.FuncMap{
	"signature":      signatureName,
	"sensor":         sensorName,
	"classification": classificationName,
	"author":         noteAuthor,
	"port":           portSuffix,
	"upper":          strings.ToUpper,
	"timestamp": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04:05 MST")
	},
}).ParseFS(templateFS, "templates/*.tmpl"))

// HTML writes the event detail fragment loaded by the console
func HTML(w io.Writer, r Report) error {
	return htmlTemplates.ExecuteTemplate(w, "event.html.tmpl", r)
}
