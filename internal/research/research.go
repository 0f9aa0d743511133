// Package research turns a query into a Research Record by running the
// search provider chain over the query and, for advanced depth, over a set
// of query variations.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/quill/internal/serp"
	"github.com/FranksOps/quill/internal/storage"
)

// NoResultsError is recorded when no provider produced a usable result.
const NoResultsError = "No search results found. The search service may be unavailable."

const (
	defaultTitle   = "Untitled"
	defaultSnippet = "No description available"
)

// DefaultVariations are the advanced-depth query templates.
var DefaultVariations = []string{"{query} latest news", "{query} 2026"}

// Searcher is satisfied by *serp.Chain. It returns the results of the
// provider that served the query and that provider's name.
type Searcher interface {
	Search(ctx context.Context, query string) ([]serp.RawResult, string)
}

// QueryStat describes one provider chain invocation of a run.
type QueryStat struct {
	Query    string `json:"query"`
	Provider string `json:"provider"` // empty when every provider failed
	Raw      int    `json:"raw"`
	Added    int    `json:"added"`
	Err      string `json:"error,omitempty"`
}

// Run is the outcome of an aggregation: the record and how each query
// contributed to it.
type Run struct {
	Record  *storage.Record
	Queries []QueryStat
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithVariations replaces the advanced-depth templates. Each "{query}" is
// substituted with the user's query.
func WithVariations(templates []string) Option {
	return func(a *Aggregator) { a.variations = templates }
}

// Aggregator builds Research Records.
type Aggregator struct {
	searcher   Searcher
	logger     *slog.Logger
	now        func() time.Time
	variations []string
}

// New returns an Aggregator searching through s.
func New(s Searcher, logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		searcher:   s,
		logger:     logger,
		now:        time.Now,
		variations: DefaultVariations,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Queries lists the queries searched for depth, in order. Anything other
// than advanced is treated as basic.
func (a *Aggregator) Queries(query string, depth storage.Depth) []string {
	queries := []string{query}
	if depth != storage.DepthAdvanced {
		return queries
	}
	for _, tmpl := range a.variations {
		queries = append(queries, strings.ReplaceAll(tmpl, "{query}", query))
	}
	return queries
}

// Aggregate returns the Research Record for query. It never fails: a run
// without results yields a record whose Error is set.
func (a *Aggregator) Aggregate(ctx context.Context, query string, depth storage.Depth) *storage.Record {
	return a.Run(ctx, query, depth).Record
}

// Run is Aggregate plus per-query statistics.
func (a *Aggregator) Run(ctx context.Context, query string, depth storage.Depth) *Run {
	if depth != storage.DepthAdvanced {
		depth = storage.DepthBasic
	}

	run := &Run{}
	m := newMerger()
	for _, q := range a.Queries(query, depth) {
		a.logger.Info("searching", "query", q, "depth", depth)

		raw, provider, err := a.search(ctx, q)
		added := m.add(raw)

		stat := QueryStat{Query: q, Provider: provider, Raw: len(raw), Added: added}
		if err != nil {
			stat.Err = err.Error()
			a.logger.Error("query failed", "query", q, "err", err)
		} else {
			a.logger.Info("query complete", "query", q, "provider", provider, "results", len(raw), "new", added)
		}
		run.Queries = append(run.Queries, stat)
	}

	rec := &storage.Record{
		Query:       query,
		Timestamp:   a.now().UTC().Format(time.RFC3339Nano),
		SearchDepth: depth,
		Results:     m.results,
		Sources:     m.sources,
		Summary:     Summarize(query, m.sources, len(m.results)),
	}
	if len(rec.Results) == 0 {
		rec.Error = NoResultsError
	}
	run.Record = rec
	return run
}

// search runs the chain for one query. A panic below the chain costs this
// query its results and nothing else.
func (a *Aggregator) search(ctx context.Context, q string) (raw []serp.RawResult, provider string, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, provider = nil, ""
			err = fmt.Errorf("search panicked: %v", r)
		}
	}()
	raw, provider = a.searcher.Search(ctx, q)
	return raw, provider, nil
}

// Summarize renders the one-line record summary.
func Summarize(query string, sources []string, n int) string {
	if n == 0 {
		return fmt.Sprintf("No results found for '%s'.", query)
	}
	top := sources
	if len(top) > 3 {
		top = top[:3]
	}
	return fmt.Sprintf("Found %d results for '%s'. Top sources: %s.", n, query, strings.Join(top, ", "))
}

// Source returns the hostname of rawURL without a leading "www.", or "" when
// rawURL has no host.
func Source(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// merger accumulates results unique by URL and the ordered set of their
// sources.
type merger struct {
	seen    map[string]struct{}
	hosts   map[string]struct{}
	results []storage.Result
	sources []string
}

func newMerger() *merger {
	return &merger{
		seen:  make(map[string]struct{}),
		hosts: make(map[string]struct{}),
	}
}

// add normalises raw and appends the results not seen before. Results
// without a URL or without a host are not citable and are skipped.
func (m *merger) add(raw []serp.RawResult) int {
	added := 0
	for _, r := range raw {
		link := strings.TrimSpace(r.URL)
		if link == "" {
			continue
		}
		if _, dup := m.seen[link]; dup {
			continue
		}
		source := Source(link)
		if source == "" {
			continue
		}
		m.seen[link] = struct{}{}

		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = defaultTitle
		}
		snippet := strings.TrimSpace(r.Snippet)
		if snippet == "" {
			snippet = defaultSnippet
		}

		m.results = append(m.results, storage.Result{
			Title:   title,
			URL:     link,
			Snippet: snippet,
			Source:  source,
		})
		if _, ok := m.hosts[source]; !ok {
			m.hosts[source] = struct{}{}
			m.sources = append(m.sources, source)
		}
		added++
	}
	return added
}
