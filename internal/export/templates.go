package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var changeTemplate = template.Must(
	template.New("change.html").
		Funcs(template.FuncMap{
			"lower": strings.ToLower,
			"formatDate": func(t time.Time, layout string) string {
				return t.Format(layout)
			},
		}).
		ParseFS(templateFS, "templates/change.html"),
)

// TemplateData holds data for the change review template. DiffHTML and
// ProposedHTML are trusted markup produced by the assembler and diff
// engine.
type TemplateData struct {
	Title         string
	LegislationID string
	Author        string
	Status        string
	Seq           int64
	CreatedAt     time.Time
	ReviewedBy    string
	DiffHTML      template.HTML
	ProposedHTML  template.HTML
}

func RenderChangeHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := changeTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
