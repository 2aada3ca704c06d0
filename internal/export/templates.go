package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"label": columnLabel,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(reportHTML))

// RenderReportHTML renders the table as a printable HTML page.
func RenderReportHTML(table Table) (string, error) {
	if table.GeneratedAt.IsZero() {
		table.GeneratedAt = time.Now()
	}
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, table); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// columnLabel turns "days_since_submission" into "Days Since Submission".
func columnLabel(column string) string {
	words := strings.Fields(strings.ReplaceAll(column, "_", " "))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

const reportHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    @page { size: letter landscape; margin: 0.5in; }
    body { font-family: Arial, sans-serif; font-size: 11px; color: #222; }
    h1 { border-bottom: 2px solid #2f7d32; padding-bottom: 0.4rem; font-size: 18px; }
    .meta { color: #666; margin-bottom: 1rem; }
    table { border-collapse: collapse; width: 100%; }
    th { background: #e8f1e8; text-align: left; }
    th, td { border: 1px solid #ccc; padding: 4px 6px; }
    tr:nth-child(even) td { background: #fafafa; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{if .Subtitle}}<p>{{.Subtitle}}</p>{{end}}
  <div class="meta">Generated {{formatDate .GeneratedAt "Jan 2, 2006 15:04"}} | {{len .Rows}} rows</div>
  <table>
    <thead><tr>{{range .Columns}}<th>{{label .}}</th>{{end}}</tr></thead>
    <tbody>
    {{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
    {{else}}<tr><td colspan="{{len .Columns}}">No rows</td></tr>
    {{end}}
    </tbody>
  </table>
</body>
</html>`
