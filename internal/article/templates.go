package article

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/FranksOps/quill/internal/storage"
)

const noContent = "## Content\n\nNo detailed content available from research sources.\n"

var bodyTemplates = template.Must(template.New("body").Parse(
	`{{define "neutral"}}## Key Findings

The following information was gathered from research:

{{range .}}### {{.Title}}

{{.Snippet}}

{{end}}{{end}}` +
		`{{define "analytical"}}## Key Findings

Analysis of the available data reveals several important patterns:

{{range .}}- **{{.Title}}** ({{.Source}}): {{.Snippet}}

{{end}}{{end}}` +
		`{{define "engaging"}}## Key Findings

Recent developments have brought new attention to this topic. Here's what the research reveals:

{{range .}}**{{.Position}}. {{.Title}}**

{{.Snippet}}

{{end}}{{end}}`))

// finding is one rendered entry. Position is 1-based among the results
// the style considers, so skipped entries leave gaps.
type finding struct {
	Position int
	Title    string
	Snippet  string
	Source   string
}

var styleLimits = map[Style]int{
	StyleNeutral:    7,
	StyleAnalytical: 5,
	StyleEngaging:   5,
}

func renderBody(style Style, results []storage.Result) (string, error) {
	if len(results) == 0 {
		return noContent, nil
	}

	limit := styleLimits[style]
	if len(results) < limit {
		limit = len(results)
	}

	findings := make([]finding, 0, limit)
	for i, r := range results[:limit] {
		if r.Snippet == "" {
			continue
		}
		findings = append(findings, finding{
			Position: i + 1,
			Title:    titleOf(r),
			Snippet:  r.Snippet,
			Source:   sourceOf(r),
		})
	}

	var b strings.Builder
	if err := bodyTemplates.ExecuteTemplate(&b, string(style), findings); err != nil {
		return "", fmt.Errorf("render %s body: %w", style, err)
	}
	return b.String(), nil
}
