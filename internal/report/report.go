package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/quill/internal/research"
	"github.com/FranksOps/quill/internal/storage"
)

// Summary describes a research run for humans and log collectors.
type Summary struct {
	RunID        string               `json:"run_id,omitempty"`
	Query        string               `json:"query"`
	Depth        storage.Depth        `json:"depth"`
	TotalResults int                  `json:"total_results"`
	TotalSources int                  `json:"total_sources"`
	Queries      []research.QueryStat `json:"queries"`
	Providers    map[string]int       `json:"providers"`
	Unserved     int                  `json:"unserved"`
	Duration     time.Duration        `json:"duration"`
	Error        string               `json:"error,omitempty"`
}

// Summarize aggregates the per-query statistics of run.
func Summarize(run *research.Run, elapsed time.Duration) Summary {
	s := Summary{
		Providers: make(map[string]int),
		Duration:  elapsed,
	}
	if run == nil || run.Record == nil {
		return s
	}

	rec := run.Record
	s.Query = rec.Query
	s.Depth = rec.SearchDepth
	s.TotalResults = len(rec.Results)
	s.TotalSources = len(rec.Sources)
	s.Error = rec.Error
	s.Queries = run.Queries

	for _, q := range run.Queries {
		if q.Provider == "" {
			s.Unserved++
			continue
		}
		s.Providers[q.Provider]++
	}
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

var textReport = template.Must(template.New("textReport").Parse(`Research Summary
----------------
Query:         {{.Query}} ({{.Depth}})
Duration:      {{.Duration}}
Found:         {{.TotalResults}} results from {{.TotalSources}} sources
{{- if .Error}}
Error:         {{.Error}}
{{- end}}

Queries:
{{- range .Queries}}
  {{printf "%q" .Query}}: {{if .Provider}}{{.Raw}} via {{.Provider}}, {{.Added}} new{{else}}no results{{end}}
{{- else}}
  None
{{- end}}

Providers:
{{- range $name, $count := .Providers}}
  {{$name}}: {{$count}}
{{- else}}
  None
{{- end}}
`))

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	if err := textReport.Execute(w, summary); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return nil
}

// Write renders summary in format, "text" or "json".
func Write(w io.Writer, format string, summary Summary) error {
	switch format {
	case "", "text":
		return WriteText(w, summary)
	case "json":
		return WriteJSON(w, summary)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
