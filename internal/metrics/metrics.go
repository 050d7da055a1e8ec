// Package metrics provides Prometheus instruments for the gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all gateway instruments on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	inFlight     prometheus.Gauge

	submissions           *prometheus.CounterVec
	credentialResolutions *prometheus.CounterVec

	// mockCalls counts backend operations served by the mock adapter. A
	// nonzero rate in production means real traffic is hitting a no-op
	// backend and must alert.
	mockCalls *prometheus.CounterVec
}

// New creates the gateway metrics set under the given namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path, and status.",
		}, []string{"service", "method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submission attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		credentialResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_resolutions_total",
			Help:      "Credential resolutions by source and result.",
		}, []string{"source", "result"}),
		mockCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mock_backend_calls_total",
			Help:      "Backend operations answered by the mock adapter.",
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.inFlight,
		m.submissions,
		m.credentialResolutions,
		m.mockCalls,
	)

	return m
}

// Handler returns the scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementInFlight marks a request as in flight.
func (m *Metrics) IncrementInFlight() { m.inFlight.Inc() }

// DecrementInFlight marks a request as finished.
func (m *Metrics) DecrementInFlight() { m.inFlight.Dec() }

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(service, method, path, status).Inc()
	m.httpDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordSubmission records one submission strategy attempt.
func (m *Metrics) RecordSubmission(strategy, outcome string) {
	m.submissions.WithLabelValues(strategy, outcome).Inc()
}

// RecordCredentialResolution records a resolution attempt by source.
func (m *Metrics) RecordCredentialResolution(source, result string) {
	m.credentialResolutions.WithLabelValues(source, result).Inc()
}

// RecordMockCall records a backend operation served by the mock adapter.
func (m *Metrics) RecordMockCall(operation string) {
	m.mockCalls.WithLabelValues(operation).Inc()
}
