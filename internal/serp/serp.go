package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/quill/internal/metrics"
)

// RawResult is a single search hit as a provider reports it. Any field may be
// empty.
type RawResult struct {
	Title   string
	URL     string
	Snippet string
}

var (
	urlKeys     = []string{"url", "link", "href"}
	snippetKeys = []string{"snippet", "abstract", "description", "body"}
)

// UnmarshalJSON accepts the field names used by the different search tools.
// The first non-empty string among the alternate keys wins; values of other
// types are ignored.
func (r *RawResult) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.Title = firstString(fields, "title")
	r.URL = firstString(fields, urlKeys...)
	r.Snippet = firstString(fields, snippetKeys...)
	return nil
}

func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Provider turns a query into raw search results.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]RawResult, error)
}

// Chain tries providers in order until one returns a usable result.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain returns a Chain over providers, highest priority first.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{providers: providers, logger: logger}
}

// Search returns the results of the first provider that yields at least one
// result with a URL, along with that provider's name. Provider errors and
// panics are logged and treated as zero results. When every provider comes
// up empty the result is nil and the name is empty.
func (c *Chain) Search(ctx context.Context, query string) ([]RawResult, string) {
	for _, p := range c.providers {
		if ctx.Err() != nil {
			c.logger.Warn("search aborted", "query", query, "err", ctx.Err())
			return nil, ""
		}

		start := time.Now()
		results, err := try(ctx, p, query)
		elapsed := time.Since(start)

		switch {
		case err != nil:
			metrics.RecordSearch(p.Name(), metrics.OutcomeError, 0, elapsed)
			c.logger.Warn("search provider failed", "provider", p.Name(), "query", query, "err", err)
		case usable(results) == 0:
			metrics.RecordSearch(p.Name(), metrics.OutcomeEmpty, 0, elapsed)
			c.logger.Info("search provider returned no results", "provider", p.Name(), "query", query)
		default:
			metrics.RecordSearch(p.Name(), metrics.OutcomeOK, len(results), elapsed)
			c.logger.Debug("search provider succeeded", "provider", p.Name(), "query", query, "results", len(results), "duration", elapsed)
			return results, p.Name()
		}
	}
	return nil, ""
}

func try(ctx context.Context, p Provider, query string) (results []RawResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = fmt.Errorf("provider %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Search(ctx, query)
}

func usable(results []RawResult) int {
	n := 0
	for _, r := range results {
		if r.URL != "" {
			n++
		}
	}
	return n
}
