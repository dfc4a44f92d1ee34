// Package metrics provides admission gate metrics for observability
package metrics

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// GateMetrics contains Prometheus metrics for the single-slot admission gate.
type GateMetrics struct {
	registry *prometheus.Registry

	admissionsTotal *prometheus.CounterVec
	inFlightGauge   prometheus.Gauge
	holdDuration    prometheus.Histogram
}

// NewGateMetrics creates and registers new admission gate metrics
func NewGateMetrics(registry *prometheus.Registry) (*GateMetrics, error) {
	m := &GateMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize gate metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register gate metrics: %w", err)
	}
	return m, nil
}

func (m *GateMetrics) initMetrics() error {
	m.admissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_admissions_total",
			Help: "Total number of admission attempts partitioned by outcome",
		},
		[]string{"outcome"}, // outcome: admitted, rejected
	)

	m.inFlightGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gate_in_flight_requests",
			Help: "Number of requests currently holding the admission slot",
		},
	)

	m.holdDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gate_hold_duration_seconds",
			Help:    "Time a request held the admission slot",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	return nil
}

// RecordAdmission records the outcome of an admission attempt
func (m *GateMetrics) RecordAdmission(admitted bool) {
	outcome := "rejected"
	if admitted {
		outcome = "admitted"
	}
	m.admissionsTotal.WithLabelValues(outcome).Inc()
}

// SetInFlight sets the number of requests holding the slot
func (m *GateMetrics) SetInFlight(count float64) {
	m.inFlightGauge.Set(count)
}

// RecordHoldDuration records how long a request held the slot
func (m *GateMetrics) RecordHoldDuration(seconds float64) {
	m.holdDuration.Observe(seconds)
}

// GetInFlight returns the current in-flight gauge value
func (m *GateMetrics) GetInFlight() float64 {
	metric := &dto.Metric{}
	if err := m.inFlightGauge.Write(metric); err != nil {
		slog.Warn("Failed to write in-flight gauge metric", "error", err)
		return 0
	}
	if metric.Gauge != nil && metric.Gauge.Value != nil {
		return *metric.Gauge.Value
	}
	return 0
}

// Describe implements the prometheus.Collector interface.
func (m *GateMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.admissionsTotal.Describe(ch)
	ch <- m.inFlightGauge.Desc()
	ch <- m.holdDuration.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *GateMetrics) Collect(ch chan<- prometheus.Metric) {
	m.admissionsTotal.Collect(ch)
	ch <- m.inFlightGauge
	ch <- m.holdDuration
}
