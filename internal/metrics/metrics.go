package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search outcomes recorded per provider attempt.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

var (
	SearchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_search_attempts_total",
			Help: "Search provider attempts by outcome",
		},
		[]string{"provider", "outcome"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quill_search_duration_seconds",
			Help:    "Duration of search provider calls in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	SearchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_search_results_total",
			Help: "Raw results returned by search providers",
		},
		[]string{"provider"},
	)

	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_fetch_requests_total",
			Help: "HTTP fetches executed by the fallback provider",
		},
		[]string{"domain", "status", "detected", "detection_src"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_fetch_bytes_total",
			Help: "Bytes downloaded by the fallback provider",
		},
		[]string{"domain"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_proxy_failures_total",
			Help: "Proxy failures during fetches",
		},
		[]string{"proxy_url"},
	)

	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_records_total",
			Help: "Research records written by status",
		},
		[]string{"status"},
	)

	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_documents_total",
			Help: "Article documents written by style and status",
		},
		[]string{"style", "status"},
	)
)

// RecordSearch updates the provider metrics for one attempt.
func RecordSearch(provider, outcome string, n int, d time.Duration) {
	SearchAttemptsTotal.WithLabelValues(provider, outcome).Inc()
	SearchDuration.WithLabelValues(provider).Observe(d.Seconds())
	if n > 0 {
		SearchResultsTotal.WithLabelValues(provider).Add(float64(n))
	}
}

// RecordFetch updates the fetch metrics. A non-empty fetchErr marks the
// request as failed regardless of status code.
func RecordFetch(domain string, statusCode int, fetchErr string, detectionSrc string, bytes int) {
	status := strconv.Itoa(statusCode)
	if fetchErr != "" {
		status = "error"
	}
	detected := strconv.FormatBool(detectionSrc != "")

	FetchRequestsTotal.WithLabelValues(domain, status, detected, detectionSrc).Inc()
	FetchBytesTotal.WithLabelValues(domain).Add(float64(bytes))
}

// WriteTextfile dumps every registered metric to path in the Prometheus text
// format, for pickup by node_exporter's textfile collector. The processes are
// short-lived, so nothing scrapes them directly.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
