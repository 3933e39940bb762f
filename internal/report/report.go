package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/sitehunt/internal/storage"
	"github.com/FranksOps/sitehunt/internal/website"
)

// Summary contains aggregated figures over stored lookups.
type Summary struct {
	Runs           int
	TotalLookups   int
	Found          int
	NotFound       int
	Failed         int
	SuccessRate    float64
	HitsByEngine   map[string]int
	BlocksByEngine map[string]int
	AvgLookup      time.Duration
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

// GenerateSummary aggregates lookup records.
func GenerateSummary(recs []*storage.LookupRecord) Summary {
	s := Summary{
		HitsByEngine:   make(map[string]int),
		BlocksByEngine: make(map[string]int),
	}

	if len(recs) == 0 {
		return s
	}

	s.StartTime = recs[0].CreatedAt
	s.EndTime = recs[0].CreatedAt
	runs := make(map[string]struct{})
	var total time.Duration

	for _, r := range recs {
		s.TotalLookups++
		runs[r.RunID] = struct{}{}
		total += r.Duration

		switch {
		case r.Found:
			s.Found++
			s.HitsByEngine[r.Engine]++
		case r.Website == website.RequestFailed:
			s.Failed++
		default:
			s.NotFound++
		}
		for _, e := range r.BlockedBy {
			s.BlocksByEngine[e]++
		}

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	s.Runs = len(runs)
	s.SuccessRate = float64(s.Found) / float64(s.TotalLookups) * 100
	s.AvgLookup = total / time.Duration(s.TotalLookups)
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

const textTmpl = `sitehunt Lookup Summary
-----------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Runs:          {{.Runs}}
Lookups:       {{.TotalLookups}}
Found:         {{.Found}} ({{printf "%.1f" .SuccessRate}}%)
Not found:     {{.NotFound}}
Failed:        {{.Failed}}
Avg lookup:    {{.AvgLookup}}

Hits by engine:
{{- range $engine, $count := .HitsByEngine}}
  {{$engine}}: {{$count}}
{{- else}}
  None
{{- end}}

Blocks by engine:
{{- range $engine, $count := .BlocksByEngine}}
  {{$engine}}: {{$count}}
{{- else}}
  None
{{- end}}
`

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse text template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>sitehunt Lookup Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>sitehunt Lookup Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Lookups</div>
    <div class="stat-val">{{.TotalLookups}}</div>
  </div>
  <div class="stat-card">
    <div>Found</div>
    <div class="stat-val" style="color: green;">{{.Found}}</div>
  </div>
  <div class="stat-card">
    <div>Not Found</div>
    <div class="stat-val">{{.NotFound}}</div>
  </div>
  <div class="stat-card">
    <div>Failed</div>
    <div class="stat-val" style="color: {{if gt .Failed 0}}red{{else}}green{{end}};">{{.Failed}}</div>
  </div>
  <div class="stat-card">
    <div>Success Rate</div>
    <div class="stat-val">{{printf "%.1f" .SuccessRate}}%</div>
  </div>

  <h3>Hits By Engine</h3>
  <table>
    <tr><th>Engine</th><th>Count</th></tr>
    {{- range $engine, $count := .HitsByEngine}}
    <tr><td>{{$engine}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Blocks By Engine</h3>
  <table>
    <tr><th>Engine</th><th>Count</th></tr>
    {{- range $engine, $count := .BlocksByEngine}}
    <tr><td>{{$engine}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: parse html template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}

// Write renders summary in format: "text", "json" or "html".
func Write(w io.Writer, format string, summary Summary) error {
	switch format {
	case "", "text":
		return WriteText(w, summary)
	case "json":
		return WriteJSON(w, summary)
	case "html":
		return WriteHTML(w, summary)
	}
	return fmt.Errorf("report: unknown format %q", format)
}
