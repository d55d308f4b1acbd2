// Package telemetry exposes Prometheus collectors for the ingest service.
package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestArticlesTotal        *prometheus.CounterVec
	ingestArticleBytesTotal    *prometheus.CounterVec
	ingestNotificationsTotal   *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	httpRateLimitedTotal       prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestArticlesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_articles_total",
				Help: "Total number of article submissions, labeled by source type and outcome.",
			},
			[]string{"source_type", "outcome"},
		)

		ingestArticleBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_article_bytes_total",
				Help: "Total raw text bytes accepted into staging, labeled by source type.",
			},
			[]string{"source_type"},
		)

		ingestNotificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_notifications_total",
				Help: "Total ingest notifications published, labeled by result.",
			},
			[]string{"result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		httpRateLimitedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "http_requests_rate_limited_total",
				Help: "Total number of HTTP requests rejected by the rate limiter.",
			},
		)
	})
}

// Ingest outcome labels.
const (
	OutcomeStaged   = "staged"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveIngest increments the ingest counters.
func ObserveIngest(sourceType, outcome string, rawTextBytes int) {
	if sourceType == "" {
		sourceType = "unknown"
	}
	ingestArticlesTotal.WithLabelValues(sourceType, outcome).Inc()
	if outcome == OutcomeStaged && rawTextBytes > 0 {
		ingestArticleBytesTotal.WithLabelValues(sourceType).Add(float64(rawTextBytes))
	}
}

// ObserveNotification records the result of one notification publish.
func ObserveNotification(result string) {
	ingestNotificationsTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimited counts one request rejected by the rate limiter.
func ObserveRateLimited() {
	httpRateLimitedTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
