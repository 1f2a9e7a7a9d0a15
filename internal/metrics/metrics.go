// Package metrics holds the Prometheus collectors shared by the HTTP layer
// and the services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// TokenOps counts token service calls by operation (issue, verify,
	// rotate, revoke) and result.
	TokenOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_operations_total",
			Help: "Token service operations by result.",
		},
		[]string{"op", "result"},
	)

	// WebhookEvents counts reconciler outcomes.
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Processed payment webhook events by outcome.",
		},
		[]string{"outcome"},
	)

	PaymentIntents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Payment intents requested from the processor.",
		},
		[]string{"result"},
	)
)

// Init registers every collector with reg.  Call it once at startup.
func Init(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPInFlight, HTTPRequestsTotal, HTTPRequestDuration,
		TokenOps, WebhookEvents, PaymentIntents,
	)
}

// Handler serves the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}
