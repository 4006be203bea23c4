// Package html renders answers as standalone HTML documents.
package html

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// Ensure Exporter implements the interface.
var _ driven.AnswerExporter = (*Exporter)(nil)

// Exporter converts the answer markdown with goldmark and wraps it in a page
// with a confidence badge and a sources table. Raw HTML in the answer is
// not passed through.
type Exporter struct {
	md   goldmark.Markdown
	page *template.Template
	now  func() time.Time
}

// New creates an exporter.
func New() *Exporter {
	return &Exporter{
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		page: template.Must(template.New("answer").Funcs(funcs).Parse(pageTemplate)),
		now:  time.Now,
	}
}

// Extension returns ".html".
func (e *Exporter) Extension() string {
	return ".html"
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// pageData feeds pageTemplate.
type pageData struct {
	Query       string
	Body        template.HTML
	Confidence  string
	Score       string
	Gated       bool
	Sources     []domain.Source
	Model       string
	TotalTime   string
	GeneratedAt string
}

// Export writes the rendered answer to w.
func (e *Exporter) Export(w io.Writer, answer *domain.Answer) error {
	var body bytes.Buffer
	if err := e.md.Convert([]byte(answer.Text), &body); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}

	data := pageData{
		Query: answer.Query,
		// goldmark escapes raw HTML unless WithUnsafe is set.
		Body:        template.HTML(body.String()), //nolint:gosec // sanitised by goldmark
		Confidence:  answer.Confidence.String(),
		Score:       fmt.Sprintf("%.2f", answer.Score),
		Gated:       answer.Gated,
		Sources:     answer.Sources,
		Model:       answer.Model,
		TotalTime:   answer.TotalTime.Round(time.Millisecond).String(),
		GeneratedAt: e.now().UTC().Format(time.RFC3339),
	}

	if err := e.page.Execute(w, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Query}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
.badge { display: inline-block; padding: 0.1rem 0.6rem; border-radius: 0.8rem; font-size: 0.9rem; }
.High { background: #d4f4dd; } .Medium { background: #fff3c4; } .Low { background: #fbd5d5; }
.gated { border-left: 4px solid #d9534f; padding-left: 1rem; }
table { border-collapse: collapse; width: 100%; font-size: 0.9rem; }
th, td { border: 1px solid #ddd; padding: 0.4rem; text-align: left; vertical-align: top; }
footer { margin-top: 2rem; color: #666; font-size: 0.8rem; }
</style>
</head>
<body>
<h1>{{.Query}}</h1>
<p><span class="badge {{.Confidence}}">Confidence: {{.Confidence}} ({{.Score}})</span></p>
<section class="answer{{if .Gated}} gated{{end}}">
{{.Body}}
</section>
{{if .Sources}}
<h2>Sources</h2>
<table>
<thead><tr><th>#</th><th>Document</th><th>Section</th><th>Topic</th><th>Similarity</th><th>Preview</th></tr></thead>
<tbody>
{{range $i, $s := .Sources}}<tr><td>{{inc $i}}</td><td>{{$s.Document}}</td><td>{{$s.Section}}</td><td>{{$s.Topic}}</td><td>{{printf "%.3f" $s.Similarity}}</td><td>{{$s.TextPreview}}</td></tr>
{{end}}</tbody>
</table>
{{end}}
<footer>{{if .Model}}Model {{.Model}} · {{end}}{{.TotalTime}} · generated {{.GeneratedAt}}</footer>
</body>
</html>
`
