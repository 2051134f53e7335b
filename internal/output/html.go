package output

import (
	"html/template"
	"io"

	"capi-inspector/internal/model"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Cluster API Report: {{.Subject}}</title>
<style>
body { font-family: Arial; margin: 40px; }
h1 { color: #333; }
table { border-collapse: collapse; width: 100%; margin-top: 20px; }
th, td { border: 1px solid #ddd; padding: 8px; }
th { background-color: #f2f2f2; }
.error, .high { color: #b00020; }
.warning, .medium { color: #b36b00; }
</style>
</head>
<body>

<h1>{{if .Command}}{{.Command}}: {{end}}{{.Subject}}</h1>
<p>Errors: {{.Errors}} &middot; Warnings: {{.Warnings}} &middot; Info: {{.Info}}</p>

{{if .Findings}}
<table>
<tr><th>Severity</th><th>Category</th><th>Resource</th><th>Field</th><th>Issue</th><th>Recommendation</th></tr>
{{range .Findings}}
<tr>
<td class="{{.Severity}}">{{.Severity}}</td>
<td>{{.Category}}</td>
<td>{{.ResourceID}}</td>
<td>{{.Field}}</td>
<td>{{.Message}}</td>
<td>{{.Recommendation}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No findings.</p>
{{end}}

</body>
</html>
`))

func WriteHTML(w io.Writer, r *model.Report) error {
	return reportTemplate.Execute(w, struct {
		Subject, Command       string
		Errors, Warnings, Info int
		Findings               []model.Finding
	}{
		Subject:  r.Subject,
		Command:  r.Command,
		Errors:   r.ErrorCount(),
		Warnings: r.WarningCount(),
		Info:     r.InfoCount(),
		Findings: r.SortedBySeverity(),
	})
}
