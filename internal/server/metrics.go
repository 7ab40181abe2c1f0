package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for the storage service.
type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	signatureFailures prometheus.Counter
	counterEvents     *prometheus.CounterVec
	rateLimited       prometheus.Counter
	storeErrors       prometheus.Counter
}

func newMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "friendle",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests received",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "friendle",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		signatureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "friendle",
			Name:      "signature_failures_total",
			Help:      "Number of ingestion requests rejected for a bad signature",
		}),
		counterEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "friendle",
			Name:      "counter_events_total",
			Help:      "Engagement counter events accepted, by type",
		}, []string{"type"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "friendle",
			Name:      "http_rate_limited_total",
			Help:      "Number of HTTP requests rejected due to rate limiting",
		}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "friendle",
			Name:      "store_errors_total",
			Help:      "Number of key-value store errors reported",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.signatureFailures,
		m.counterEvents,
		m.rateLimited,
		m.storeErrors,
	)

	return m
}

// Handler returns an HTTP handler exposing the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records timing and status information.
func (m *Metrics) ObserveRequest(route, method string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(dur.Seconds())
}

// IncSignatureFailures counts a rejected signed write.
func (m *Metrics) IncSignatureFailures() {
	if m == nil {
		return
	}
	m.signatureFailures.Inc()
}

// IncCounterEvent counts an accepted engagement event.
func (m *Metrics) IncCounterEvent(eventType string) {
	if m == nil {
		return
	}
	m.counterEvents.WithLabelValues(eventType).Inc()
}

// IncRateLimited increments the rate limit counter.
func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// IncStoreErrors counts a backend read/write failure.
func (m *Metrics) IncStoreErrors() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}
