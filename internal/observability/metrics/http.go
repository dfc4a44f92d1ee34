// Package metrics provides HTTP handler metrics for observability
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains Prometheus metrics for HTTP handler operations
type HTTPMetrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestErrors   *prometheus.CounterVec
	httpResponseSize    *prometheus.HistogramVec

	// Handler-specific metrics
	handlerOperationsTotal   *prometheus.CounterVec
	handlerOperationDuration *prometheus.HistogramVec
	handlerOperationErrors   *prometheus.CounterVec
}

// NewHTTPMetrics creates and registers new HTTP handler metrics
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *HTTPMetrics) initMetrics() error {
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"}, // method: GET, POST; path: /detect, /csv; status_code: 200, 429, 503
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time taken for HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.httpRequestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "Total number of HTTP request errors",
		},
		[]string{"method", "path", "error_type"},
	)

	m.httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8), // 64B to ~1MB
		},
		[]string{"method", "path"},
	)

	m.handlerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handler_operations_total",
			Help: "Total number of handler operations",
		},
		[]string{"handler", "operation", "status"},
	)

	m.handlerOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "handler_operation_duration_seconds",
			Help:    "Time taken for handler operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "operation"},
	)

	m.handlerOperationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handler_operation_errors_total",
			Help: "Total number of handler operation errors",
		},
		[]string{"handler", "operation", "error_type"},
	)

	return nil
}

// RecordHTTPRequest records an HTTP request with its response status
func (m *HTTPMetrics) RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordHTTPRequestError records an HTTP request error
func (m *HTTPMetrics) RecordHTTPRequestError(method, path, errorType string) {
	m.httpRequestErrors.WithLabelValues(method, path, errorType).Inc()
}

// RecordHTTPResponseSize records the size of an HTTP response
func (m *HTTPMetrics) RecordHTTPResponseSize(method, path string, sizeBytes int64) {
	m.httpResponseSize.WithLabelValues(method, path).Observe(float64(sizeBytes))
}

// RecordHandlerOperation records a handler operation
func (m *HTTPMetrics) RecordHandlerOperation(handler, operation, status string) {
	m.handlerOperationsTotal.WithLabelValues(handler, operation, status).Inc()
}

// RecordHandlerOperationDuration records the duration of a handler operation
func (m *HTTPMetrics) RecordHandlerOperationDuration(handler, operation string, duration float64) {
	m.handlerOperationDuration.WithLabelValues(handler, operation).Observe(duration)
}

// RecordHandlerOperationError records a handler operation error
func (m *HTTPMetrics) RecordHandlerOperationError(handler, operation, errorType string) {
	m.handlerOperationErrors.WithLabelValues(handler, operation, errorType).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.httpRequestsTotal.Describe(ch)
	m.httpRequestDuration.Describe(ch)
	m.httpRequestErrors.Describe(ch)
	m.httpResponseSize.Describe(ch)
	m.handlerOperationsTotal.Describe(ch)
	m.handlerOperationDuration.Describe(ch)
	m.handlerOperationErrors.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.httpRequestsTotal.Collect(ch)
	m.httpRequestDuration.Collect(ch)
	m.httpRequestErrors.Collect(ch)
	m.httpResponseSize.Collect(ch)
	m.handlerOperationsTotal.Collect(ch)
	m.handlerOperationDuration.Collect(ch)
	m.handlerOperationErrors.Collect(ch)
}
