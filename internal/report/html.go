// File: internal/report/html.go
package report

import (
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"time"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

// HTMLReporter renders a self-contained run report with per-step detail.
type HTMLReporter struct {
	writer io.WriteCloser
	tmpl   *template.Template
}

// NewHTMLReporter takes ownership of the writer.
func NewHTMLReporter(w io.WriteCloser) *HTMLReporter {
	tmpl := template.Must(template.New("report").Funcs(template.FuncMap{
		"statusClass": statusClass,
		"basename":    filepath.Base,
		"duration": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
	}).Parse(reportTemplate))
	return &HTMLReporter{writer: w, tmpl: tmpl}
}

type htmlReport struct {
	GeneratedAt time.Time
	Summary     summary
	Results     []*schemas.TestResult
}

func (r *HTMLReporter) Write(results []*schemas.TestResult) error {
	doc := htmlReport{
		GeneratedAt: time.Now(),
		Summary:     summarize(results),
		Results:     results,
	}
	if err := r.tmpl.Execute(r.writer, doc); err != nil {
		return fmt.Errorf("rendering HTML report: %w", err)
	}
	return nil
}

func (r *HTMLReporter) Close() error { return r.writer.Close() }

func statusClass(status any) string {
	switch fmt.Sprint(status) {
	case "pass":
		return "pass"
	case "fail":
		return "fail"
	default:
		return "error"
	}
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Kestrel Test Report</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2rem; color: #222; }
  h1 { font-size: 1.5rem; }
  table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
  th, td { border: 1px solid #ddd; padding: 0.5rem 0.75rem; text-align: left; vertical-align: top; }
  th { background: #f5f5f5; }
  .pass { color: #1a7f37; font-weight: 600; }
  .fail { color: #cf222e; font-weight: 600; }
  .error { color: #9a6700; font-weight: 600; }
  .meta { color: #666; font-size: 0.85rem; }
  details { margin: 0.5rem 0; }
  .shots a { margin-right: 0.5rem; }
</style>
</head>
<body>
<h1>Kestrel Test Report</h1>
<p class="meta">Generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}</p>

<table>
  <tr><th>Total</th><th>Passed</th><th>Failed</th><th>Errors</th><th>Input tokens</th><th>Output tokens</th></tr>
  <tr>
    <td>{{.Summary.Total}}</td>
    <td class="pass">{{.Summary.Passed}}</td>
    <td class="fail">{{.Summary.Failed}}</td>
    <td class="error">{{.Summary.Errors}}</td>
    <td>{{.Summary.InputTokens}}</td>
    <td>{{.Summary.OutputTokens}}</td>
  </tr>
</table>

{{range .Results}}
<h2>{{.Name}} <span class="{{statusClass .Status}}">{{.Status}}</span></h2>
<p class="meta">
  {{if .Platform}}Platform: {{.Platform}} &middot; {{end}}
  Started {{.StartTime.Format "15:04:05"}} &middot;
  Finished {{.EndTime.Format "15:04:05"}} &middot;
  {{.PassedCount}} passed, {{.FailedCount}} failed, {{.ErrorCount}} errors
</p>
<table>
  <tr><th>#</th><th>Action</th><th>Expected</th><th>Status</th><th>Observed</th><th>Duration</th><th>Screenshots</th></tr>
  {{range .Steps}}
  <tr>
    <td>{{.StepNumber}}</td>
    <td>{{.Action}}</td>
    <td>{{.Expected}}</td>
    <td class="{{statusClass .Status}}">{{.Status}}</td>
    <td>
      {{if .ErrorMessage}}<strong>{{.ErrorMessage}}</strong>{{else}}{{.Actual}}{{end}}
      {{if or .StateBefore .StateAfter}}
      <details><summary class="meta">state</summary>
        <p class="meta">before: {{.StateBefore}}<br>after: {{.StateAfter}}</p>
      </details>
      {{end}}
    </td>
    <td>{{duration .Duration}}</td>
    <td class="shots">
      {{range .ScreenshotPaths}}<a href="{{.}}">{{basename .}}</a>{{end}}
    </td>
  </tr>
  {{end}}
</table>
{{end}}

</body>
</html>
`
