// Package metrics provides Prometheus instrumentation for receiptproof.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled bool

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Verification metrics
	verificationTotal *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
)

// Init initializes the metrics system.
func Init(enabledFlag bool) {
	enabled = enabledFlag
	if !enabled {
		return
	}

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	verificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_request_total",
			Help: "Total number of receipt verifications by bank and outcome",
		},
		[]string{"bank", "result"},
	)

	// Bank hosts are slow and flaky; the fetch latency distribution is
	// the first graph consulted when TransportUnavailable spikes.
	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "receipt_fetch_duration_seconds",
			Help:    "Receipt download latency in seconds by bank",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"bank"},
	)
}

// Verification records one verification outcome.
func Verification(bank, result string) {
	if !enabled {
		return
	}
	verificationTotal.WithLabelValues(bank, result).Inc()
}

// FetchObserved records one receipt download duration.
func FetchObserved(bank string, d time.Duration) {
	if !enabled {
		return
	}
	fetchDuration.WithLabelValues(bank).Observe(d.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}
