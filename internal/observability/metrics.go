// Package observability provides metrics and monitoring capabilities for the detection gateway.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/kawakawa0804/umi-no-me-web2/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Detector *metrics.DetectorMetrics
	HTTP     *metrics.HTTPMetrics
	Gate     *metrics.GateMetrics
	MQTT     *metrics.MQTTMetrics
	AuditLog *metrics.AuditLogMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	detectorMetrics, err := metrics.NewDetectorMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	gateMetrics, err := metrics.NewGateMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create gate metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	auditLogMetrics, err := metrics.NewAuditLogMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log metrics: %w", err)
	}

	m := &Metrics{
		registry: registry,
		Detector: detectorMetrics,
		HTTP:     httpMetrics,
		Gate:     gateMetrics,
		MQTT:     mqttMetrics,
		AuditLog: auditLogMetrics,
	}

	return m, nil
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", m.metricsHandler)
}

// Handler returns the HTTP handler for the metrics endpoint, for routers that
// mount it themselves.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// Gather exposes the underlying registry's gather function for diagnostics.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

// metricsHandler is the HTTP handler for the /metrics endpoint.
func (m *Metrics) metricsHandler(w http.ResponseWriter, r *http.Request) {
	m.Handler().ServeHTTP(w, r)
}
