package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/quill/internal/fingerprint"
	"github.com/FranksOps/quill/pkg/proxy"
	"github.com/FranksOps/quill/pkg/useragent"
)

func TestFetcher_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "TestBrowser/1.0" {
			t.Errorf("expected User-Agent TestBrowser/1.0, got %q", got)
		}
		if r.Header.Get("Accept-Language") == "" {
			t.Errorf("expected default Accept-Language header")
		}
		w.Header().Set("X-Test", "true")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	fetcher, err := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		UAPool:      useragent.NewPool([]string{"TestBrowser/1.0"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer fetcher.Close()

	page, err := fetcher.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if page.Error != "" {
		t.Fatalf("expected no fetch error, got %s", page.Error)
	}
	if !page.OK() {
		t.Errorf("expected page to be OK")
	}
	if page.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", page.StatusCode)
	}
	if string(page.Body) != "ok" {
		t.Errorf("expected body 'ok', got %s", string(page.Body))
	}
	if page.Headers.Get("X-Test") != "true" {
		t.Errorf("expected X-Test header 'true', got %v", page.Headers["X-Test"])
	}
	if page.Duration == 0 {
		t.Errorf("expected non-zero duration")
	}
	if page.ID == "" {
		t.Errorf("expected non-empty UUID")
	}
}

func TestFetcher_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	fetcher, err := NewFetcher(FetchConfig{
		Timeout:     10 * time.Millisecond,
		Fingerprint: fingerprint.ProfileGo,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page, _ := fetcher.Fetch(context.Background(), ts.URL)

	if page.Error == "" || !strings.Contains(page.Error, "request failed") {
		t.Errorf("expected timeout error, got %v", page.Error)
	}
	if page.OK() {
		t.Errorf("expected timed out page not to be OK")
	}
}

func TestFetcher_Proxy(t *testing.T) {
	// Plain HTTP requests through a proxy are sent to the proxy itself, so a
	// server answering 418 proves the route.
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer proxyServer.Close()

	pPool := proxy.NewPool(proxy.Config{MaxFailures: 1, Cooldown: time.Second})
	if err := pPool.Add(proxyServer.URL); err != nil {
		t.Fatalf("failed to add proxy: %v", err)
	}

	fetcher, err := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		ProxyPool:   pPool,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	targetServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer targetServer.Close()

	page, _ := fetcher.Fetch(context.Background(), targetServer.URL)

	if page.StatusCode != http.StatusTeapot {
		t.Errorf("expected 418 Teapot from proxy, got %d, err: %v", page.StatusCode, page.Error)
	}
}

func TestFetcher_DetectsAnomalyPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`<div class="anomaly-modal__title">Unfortunately, bots use DuckDuckGo too.</div>`))
	}))
	defer ts.Close()

	fetcher, err := NewFetcher(FetchConfig{Fingerprint: fingerprint.ProfileGo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page, _ := fetcher.Fetch(context.Background(), ts.URL)
	if !page.DetectedBot || page.DetectionSrc != "DuckDuckGo" {
		t.Errorf("expected DuckDuckGo detection, got %v %q", page.DetectedBot, page.DetectionSrc)
	}
	if page.OK() {
		t.Errorf("expected challenged page not to be OK")
	}
}

func TestFetcher_CancelledContext(t *testing.T) {
	fetcher, err := NewFetcher(FetchConfig{Fingerprint: fingerprint.ProfileGo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page, _ := fetcher.Fetch(ctx, "http://127.0.0.1:1/")
	if page.Error == "" {
		t.Errorf("expected an error for a cancelled context")
	}
}
