package main

import (
	"fmt"
	"log/slog"

	"github.com/FranksOps/quill/internal/config"
	"github.com/FranksOps/quill/internal/fingerprint"
	"github.com/FranksOps/quill/internal/scraper"
	"github.com/FranksOps/quill/internal/serp"
	"github.com/FranksOps/quill/pkg/proxy"
	"github.com/FranksOps/quill/pkg/ratelimit"
	"github.com/FranksOps/quill/pkg/useragent"
)

// newChain builds the provider chain: the search CLI first, then the HTML
// results page. The returned func releases the fetcher's connections.
func newChain(sc config.SearchConfig, log *slog.Logger) (*serp.Chain, func(), error) {
	profile, err := fingerprint.ParseProfile(sc.Fingerprint)
	if err != nil {
		return nil, nil, fmt.Errorf("search.fingerprint: %w", err)
	}

	var proxies *proxy.Pool
	if sc.ProxyFile != "" {
		proxies = proxy.NewPool(proxy.Config{})
		if err := proxies.LoadFile(sc.ProxyFile); err != nil {
			return nil, nil, fmt.Errorf("search.proxy_file: %w", err)
		}
		log.Debug("loaded proxies", "count", proxies.Len())
	}

	limiter := ratelimit.NewLimiter(sc.RequestsPerSecond, sc.Jitter)
	log.Debug("fallback fetch settings", "fingerprint", profile, "interval", limiter.Interval())

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:     sc.HTMLTimeout,
		ProxyPool:   proxies,
		UAPool:      useragent.NewPool(sc.UserAgents),
		Fingerprint: profile,
		Limiter:     limiter,
	})
	if err != nil {
		return nil, nil, err
	}

	chain := serp.NewChain(log,
		serp.NewCommandProvider(serp.CommandConfig{
			Command:    sc.Command,
			NumResults: sc.NumResults,
			Timeout:    sc.CommandTimeout,
		}),
		serp.NewHTMLProvider(fetcher, serp.HTMLConfig{
			Endpoint:   sc.HTMLEndpoint,
			MaxResults: sc.MaxResults,
		}),
	)
	return chain, fetcher.Close, nil
}
