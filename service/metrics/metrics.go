package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application. Following the
// explicit dependency injection pattern, this struct is passed to all
// components that need to record metrics; a nil *Metrics disables recording.
type Metrics struct {
	// Chain RPC metrics
	rpcCallsTotal   *prometheus.CounterVec
	rpcCallDuration *prometheus.HistogramVec

	// Upstream HTTP service metrics (quote oracle, swap assembler, token
	// search, name-service providers)
	upstreamCallsTotal   *prometheus.CounterVec
	upstreamCallDuration *prometheus.HistogramVec

	// Resolution metrics
	resolutionsTotal *prometheus.CounterVec

	// Transaction construction metrics
	constructionsTotal   *prometheus.CounterVec
	constructionDuration *prometheus.HistogramVec

	// HTTP server metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Side-channel metrics (audit log, event publishing)
	auditWritesTotal     *prometheus.CounterVec
	eventsPublishedTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		upstreamCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_calls_total",
				Help: "Total number of upstream HTTP service calls by provider, operation, and status",
			},
			[]string{"provider", "operation", "status"},
		),
		upstreamCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_call_duration_seconds",
				Help:    "Duration of upstream HTTP service calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"provider", "operation"},
		),
		resolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "destination_resolutions_total",
				Help: "Total number of destination resolution attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		constructionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transaction_constructions_total",
				Help: "Total number of transaction construction requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		constructionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transaction_construction_duration_seconds",
				Help:    "End-to-end duration of transaction construction by operation",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"operation"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by handler, method, and status code",
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"handler", "method"},
		),
		auditWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_writes_total",
				Help: "Total number of construction audit-log writes by status",
			},
			[]string{"status"},
		),
		eventsPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_published_total",
				Help: "Total number of construction events published by status",
			},
			[]string{"status"},
		),
	}
}

// RecordRPCCall records a Solana RPC call.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, durationSeconds float64) {
	m.rpcCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.rpcCallDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordUpstreamCall records a call to an upstream HTTP service.
func (m *Metrics) RecordUpstreamCall(provider, operation, status string, durationSeconds float64) {
	m.upstreamCallsTotal.WithLabelValues(provider, operation, status).Inc()
	m.upstreamCallDuration.WithLabelValues(provider, operation).Observe(durationSeconds)
}

// RecordResolution records a destination resolution attempt outcome.
func (m *Metrics) RecordResolution(provider, outcome string) {
	m.resolutionsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordConstruction records a transaction construction request.
func (m *Metrics) RecordConstruction(operation, status string, durationSeconds float64) {
	m.constructionsTotal.WithLabelValues(operation, status).Inc()
	m.constructionDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request handled by the server.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, durationSeconds float64) {
	m.httpRequestsTotal.WithLabelValues(handler, method, statusLabel(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(durationSeconds)
}

// RecordAuditWrite records a construction audit-log write.
func (m *Metrics) RecordAuditWrite(status string) {
	m.auditWritesTotal.WithLabelValues(status).Inc()
}

// RecordEventPublished records a construction event publish attempt.
func (m *Metrics) RecordEventPublished(status string) {
	m.eventsPublishedTotal.WithLabelValues(status).Inc()
}

func statusLabel(code int) string {
	switch {
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
