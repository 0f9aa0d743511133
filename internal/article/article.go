// Package article renders a Research Record as a markdown document.
package article

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/FranksOps/quill/internal/storage"
)

// Style selects the body template.
type Style string

const (
	StyleNeutral    Style = "neutral"
	StyleAnalytical Style = "analytical"
	StyleEngaging   Style = "engaging"
)

// ParseStyle validates a style name.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case StyleNeutral, StyleAnalytical, StyleEngaging:
		return st, nil
	default:
		return "", fmt.Errorf("invalid style %q (choose from neutral, analytical, engaging)", s)
	}
}

// Length selects the adjustment applied to the assembled document.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// ParseLength validates a length name.
func ParseLength(s string) (Length, error) {
	switch l := Length(strings.ToLower(strings.TrimSpace(s))); l {
	case LengthShort, LengthMedium, LengthLong:
		return l, nil
	default:
		return "", fmt.Errorf("invalid length %q (choose from short, medium, long)", s)
	}
}

// ShortLimit is the number of characters a short document keeps.
const ShortLimit = 2000

const (
	defaultTopic  = "Research Topic"
	defaultTitle  = "Untitled"
	defaultSource = "Unknown"
)

var smallWords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true, "at": true,
	"to": true, "for": true, "of": true, "with": true, "by": true,
}

// Title title-cases query. Small words stay lowercase except in first
// position.
func Title(query string) string {
	words := strings.Fields(query)
	if len(words) == 0 {
		return defaultTopic
	}
	for i, w := range words {
		if i > 0 && smallWords[strings.ToLower(w)] {
			words[i] = strings.ToLower(w)
			continue
		}
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}

// Summary describes what the results cover.
func Summary(query string, results []storage.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No specific information found for '%s'.", query)
	}

	hasSnippet := false
	for _, r := range results {
		if r.Snippet != "" {
			hasSnippet = true
			break
		}
	}
	if !hasSnippet {
		return fmt.Sprintf("Research on '%s' returned results but detailed content was limited.", query)
	}

	return fmt.Sprintf(
		"Recent research on '%s' reveals information from multiple sources including %s. The findings span %d distinct sources and cover various aspects of the topic.",
		query, strings.Join(leadingSources(results, 5, 3), ", "), len(results))
}

// leadingSources returns up to max distinct sources among the first n
// results, in result order.
func leadingSources(results []storage.Result, n, max int) []string {
	if len(results) > n {
		results = results[:n]
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range results {
		src := sourceOf(r)
		if seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
		if len(out) == max {
			break
		}
	}
	return out
}

func sourceOf(r storage.Result) string {
	if r.Source == "" {
		return defaultSource
	}
	return r.Source
}

func titleOf(r storage.Result) string {
	if r.Title == "" {
		return defaultTitle
	}
	return r.Title
}

// Sources renders the citation list.
func Sources(results []storage.Result) string {
	var b strings.Builder
	b.WriteString("## Sources\n\n")
	for _, r := range results {
		if r.URL != "" {
			fmt.Fprintf(&b, "- [%s](%s) - %s\n", titleOf(r), r.URL, sourceOf(r))
		} else {
			fmt.Fprintf(&b, "- %s - %s\n", titleOf(r), sourceOf(r))
		}
	}
	return b.String()
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithClock overrides the render date used by long documents and by
// records without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// Synthesizer renders documents. The zero value is not usable; call New.
type Synthesizer struct {
	now func() time.Time
}

func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize renders rec. A failed record is refused rather than rendered.
func (s *Synthesizer) Synthesize(rec *storage.Record, style Style, length Length) (string, error) {
	if rec == nil {
		return "", errors.New("nil record")
	}
	if rec.Failed() {
		return "", fmt.Errorf("%w: %s", storage.ErrRecordFailed, rec.Error)
	}
	style, err := ParseStyle(string(style))
	if err != nil {
		return "", err
	}
	length, err = ParseLength(string(length))
	if err != nil {
		return "", err
	}

	body, err := renderBody(style, rec.Results)
	if err != nil {
		return "", err
	}

	ts := rec.Timestamp
	if ts == "" {
		ts = s.now().UTC().Format(time.RFC3339Nano)
	}

	parts := []string{
		"# " + Title(rec.Query) + "\n",
		"*Research Date: " + ts + "*\n",
		fmt.Sprintf("*Sources: %d*\n", len(rec.Results)),
		"## Summary\n",
		Summary(rec.Query, rec.Results),
		"",
		body,
	}
	if len(rec.Results) > 0 {
		parts = append(parts, Sources(rec.Results))
	}

	return s.adjust(strings.Join(parts, "\n"), length, len(rec.Results)), nil
}

func (s *Synthesizer) adjust(doc string, length Length, n int) string {
	switch length {
	case LengthShort:
		return truncate(doc, ShortLimit)
	case LengthLong:
		return doc + fmt.Sprintf(
			"\n\n## Additional Context\n\nResearch conducted on %s. Data sourced from %d unique sources. This article presents a comprehensive overview based on available information.",
			s.now().UTC().Format("January 02, 2006"), n)
	default:
		return doc
	}
}

// truncate keeps the first limit characters of s.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}

// WordCount counts whitespace separated words.
func WordCount(doc string) int {
	return len(strings.Fields(doc))
}

// ErrorDocument is written in place of an article when a run fails.
func ErrorDocument(msg string) string {
	return "# Error\n\n" + msg + "\n"
}
