// Package metrics exposes the Prometheus collectors for the mealdesk
// application on a dedicated registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mealdesk",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mealdesk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mealdesk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ordersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mealdesk",
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Total order placement attempts by outcome.",
		},
		[]string{"outcome"},
	)

	ordersDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mealdesk",
			Subsystem: "orders",
			Name:      "deleted_total",
			Help:      "Total order deletion attempts by outcome.",
		},
		[]string{"outcome"},
	)

	ordersPaid = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mealdesk",
			Subsystem: "orders",
			Name:      "marked_paid_total",
			Help:      "Total orders marked paid.",
		},
	)

	cutoffFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mealdesk",
			Subsystem: "settings",
			Name:      "cutoff_fallbacks_total",
			Help:      "Times the cutoff setting was missing or malformed and the default was substituted.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ordersPlaced,
		ordersDeleted,
		ordersPaid,
		cutoffFallbacks,
	)
}

// Handler serves the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// IncrementInFlight bumps the in-flight HTTP gauge.
func IncrementInFlight() { httpInFlight.Inc() }

// DecrementInFlight lowers the in-flight HTTP gauge.
func DecrementInFlight() { httpInFlight.Dec() }

// RecordHTTPRequest records one handled request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOrderPlaced counts a placement attempt; outcome is "ok", "conflict",
// "rejected" or "error".
func RecordOrderPlaced(outcome string) { ordersPlaced.WithLabelValues(outcome).Inc() }

// RecordOrderDeleted counts a deletion attempt; outcome is "ok", "forbidden"
// or "error".
func RecordOrderDeleted(outcome string) { ordersDeleted.WithLabelValues(outcome).Inc() }

// RecordOrderPaid counts a successful paid transition.
func RecordOrderPaid() { ordersPaid.Inc() }

// RecordCutoffFallback counts a degraded-config substitution of the default
// cutoff time.
func RecordCutoffFallback() { cutoffFallbacks.Inc() }
