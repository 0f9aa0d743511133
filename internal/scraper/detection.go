package scraper

import (
	"bytes"
	"net/http"
	"strings"
)

// Detector examines a fetched page to determine if a bot protection mechanism
// blocked or challenged the request.
type Detector func(page *Page) (detected bool, source string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectDuckDuckGo,
		detectCloudflare,
		detectAkamai,
		detectDataDome,
	}
}

// Analyze runs the page through all provided detectors. It updates the page
// in place with the detection status and returns true if any detection triggered.
func Analyze(page *Page, detectors []Detector) bool {
	if page == nil {
		return false
	}
	for _, d := range detectors {
		if detected, source := d(page); detected {
			page.DetectedBot = true
			page.DetectionSrc = source
			return true
		}
	}
	page.DetectedBot = false
	page.DetectionSrc = ""
	return false
}

// detectDuckDuckGo recognizes the anomaly page the HTML endpoint serves to
// clients it considers automated. It is usually a 202 with a captcha form.
func detectDuckDuckGo(page *Page) (bool, string) {
	if bytes.Contains(page.Body, []byte("anomaly-modal")) ||
		bytes.Contains(page.Body, []byte("bots use DuckDuckGo too")) {
		return true, "DuckDuckGo"
	}
	if page.StatusCode == http.StatusAccepted && bytes.Contains(page.Body, []byte("challenge-form")) {
		return true, "DuckDuckGo"
	}
	return false, ""
}

// detectCloudflare looks for common Cloudflare challenge/block signatures.
func detectCloudflare(page *Page) (bool, string) {
	if page.StatusCode != http.StatusForbidden && page.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(page.Headers.Get("Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	if bytes.Contains(page.Body, []byte("cf-browser-verification")) ||
		bytes.Contains(page.Body, []byte("cf-turnstile")) ||
		bytes.Contains(page.Body, []byte("Attention Required! | Cloudflare")) {
		return true, "Cloudflare"
	}
	return false, ""
}

// detectAkamai looks for Akamai Bot Manager signatures. Proxies in front of
// the search endpoint are the usual source.
func detectAkamai(page *Page) (bool, string) {
	if page.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(page.Headers.Get("Server")), "akamai") {
		return true, "Akamai"
	}
	if bytes.Contains(page.Body, []byte("Reference #")) && bytes.Contains(page.Body, []byte("Access Denied")) {
		return true, "Akamai"
	}
	return false, ""
}

// detectDataDome looks for DataDome challenge/block signatures.
func detectDataDome(page *Page) (bool, string) {
	if page.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(page.Headers.Get("Server")), "datadome") ||
		page.Headers.Get("X-DataDome") != "" ||
		page.Headers.Get("X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if bytes.Contains(page.Body, []byte("geo.captcha-delivery.com")) {
		return true, "DataDome"
	}
	return false, ""
}
