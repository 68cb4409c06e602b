package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks the number of outbound API calls to WooCommerce.
	WooRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "woo_api_requests_total",
			Help: "Total number of WooCommerce API requests made (by endpoint and status).",
		},
		[]string{"endpoint", "status"},
	)

	// Measures duration of API requests to WooCommerce.
	WooRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "woo_api_request_duration_seconds",
			Help:    "Duration of WooCommerce API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"endpoint"},
	)

	// Tracks quote submissions by outcome.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_submissions_total",
			Help: "Total number of quote submissions processed.",
		},
		[]string{"result"}, // created | rejected | failed
	)

	// Tracks cache hits and misses for the catalog caches.
	CacheAccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_access_total",
			Help: "Number of cache hits/misses by cache partition.",
		},
		[]string{"cache", "result"}, // cache = list | detail, result = hit | miss
	)

	// Tracks inbound webhook deliveries by outcome.
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commerce_webhooks_total",
			Help: "Total number of inbound commerce webhooks by result.",
		},
		[]string{"result"}, // ok | invalid_signature | invalid_payload
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)
)

// ObserveDuration records the time taken for a call and updates the given histogram.
func ObserveDuration(h *prometheus.HistogramVec, start time.Time, labels ...string) {
	h.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
}

func IncWooRequest(endpoint, status string) {
	WooRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

func IncSubmission(result string) {
	SubmissionsTotal.WithLabelValues(result).Inc()
}

func IncCacheAccess(cache, result string) {
	CacheAccessTotal.WithLabelValues(cache, result).Inc()
}

func IncWebhook(result string) {
	WebhooksTotal.WithLabelValues(result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}
