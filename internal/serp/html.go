package serp

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/FranksOps/quill/internal/scraper"
	"github.com/PuerkitoBio/goquery"
)

// DefaultHTMLEndpoint is DuckDuckGo's JavaScript-free results page.
const DefaultHTMLEndpoint = "https://html.duckduckgo.com/html/"

// Fetcher is the subset of scraper.Fetcher the HTML provider needs.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (*scraper.Page, error)
}

// HTMLConfig configures an HTMLProvider.
type HTMLConfig struct {
	Endpoint   string
	MaxResults int
}

// HTMLProvider scrapes a DuckDuckGo-style HTML results page.
type HTMLProvider struct {
	fetcher Fetcher
	cfg     HTMLConfig
}

// NewHTMLProvider returns a provider that fetches result pages through f.
func NewHTMLProvider(f Fetcher, cfg HTMLConfig) *HTMLProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultHTMLEndpoint
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &HTMLProvider{fetcher: f, cfg: cfg}
}

func (p *HTMLProvider) Name() string { return "duckduckgo-html" }

func (p *HTMLProvider) Search(ctx context.Context, query string) ([]RawResult, error) {
	target, err := url.Parse(p.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", p.cfg.Endpoint, err)
	}
	q := target.Query()
	q.Set("q", query)
	target.RawQuery = q.Encode()

	page, err := p.fetcher.Fetch(ctx, target.String())
	if err != nil {
		return nil, err
	}
	if !page.OK() {
		switch {
		case page.Error != "":
			return nil, fmt.Errorf("fetching results page: %s", page.Error)
		case page.DetectedBot:
			return nil, fmt.Errorf("results page blocked by %s challenge", page.DetectionSrc)
		default:
			return nil, fmt.Errorf("results page returned status %d", page.StatusCode)
		}
	}

	return parseResults(page.Body, p.cfg.MaxResults)
}

// parseResults extracts up to max results from a results page. A result
// needs a title anchor, a snippet and a link that resolves to an absolute
// URL.
func parseResults(body []byte, max int) ([]RawResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing results page: %w", err)
	}

	var results []RawResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		anchor := s.Find(".result__a").First()
		snippet := s.Find(".result__snippet").First()
		if anchor.Length() == 0 || snippet.Length() == 0 {
			return true
		}

		href, _ := anchor.Attr("href")
		link, ok := normalizeLink(href)
		if !ok {
			return true
		}

		results = append(results, RawResult{
			Title:   strings.TrimSpace(anchor.Text()),
			URL:     link,
			Snippet: strings.TrimSpace(snippet.Text()),
		})
		return len(results) < max
	})

	return results, nil
}

// normalizeLink makes scheme-relative links absolute, drops site-relative
// ones and unwraps DuckDuckGo's /l/?uddg= redirect links.
func normalizeLink(href string) (string, bool) {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return "", false
	case strings.HasPrefix(href, "//"):
		href = "https:" + href
	case strings.HasPrefix(href, "/"):
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") && u.Path == "/l/" {
		if target := u.Query().Get("uddg"); target != "" && !strings.HasPrefix(target, "/") {
			return normalizeLink(target)
		}
		return "", false
	}

	return href, true
}
