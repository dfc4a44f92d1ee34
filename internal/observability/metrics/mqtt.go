// Package metrics provides MQTT publisher metrics for observability
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics contains Prometheus metrics for the MQTT publisher.
type MQTTMetrics struct {
	registry *prometheus.Registry

	ConnectionStatus  prometheus.Gauge
	MessagesDelivered *prometheus.CounterVec
	Errors            *prometheus.CounterVec
	ReconnectAttempts prometheus.Counter
	MessageSize       prometheus.Histogram
	PublishLatency    prometheus.Histogram
}

// NewMQTTMetrics creates and registers new MQTT metrics
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize MQTT metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

func (m *MQTTMetrics) initMetrics() error {
	m.ConnectionStatus = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mqtt_connection_status",
			Help: "Current MQTT connection status (1 connected, 0 disconnected)",
		},
	)

	m.MessagesDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_messages_delivered_total",
			Help: "Total number of MQTT messages delivered",
		},
		[]string{"topic"},
	)

	m.Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_errors_total",
			Help: "Total number of MQTT errors",
		},
		[]string{"error_type"},
	)

	m.ReconnectAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mqtt_reconnect_attempts_total",
			Help: "Total number of MQTT reconnect attempts",
		},
	)

	m.MessageSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mqtt_message_size_bytes",
			Help:    "Size of published MQTT messages",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
	)

	m.PublishLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mqtt_publish_latency_seconds",
			Help:    "Latency of MQTT publish operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
	)

	return nil
}

// UpdateConnectionStatus updates the connection status gauge
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if connected {
		m.ConnectionStatus.Set(1)
	} else {
		m.ConnectionStatus.Set(0)
	}
}

// RecordPublish records a successful publish with its payload size and latency
func (m *MQTTMetrics) RecordPublish(topic string, sizeBytes int, latencySeconds float64) {
	m.MessagesDelivered.WithLabelValues(topic).Inc()
	m.MessageSize.Observe(float64(sizeBytes))
	m.PublishLatency.Observe(latencySeconds)
}

// RecordError records an MQTT error
func (m *MQTTMetrics) RecordError(errorType string) {
	m.Errors.WithLabelValues(errorType).Inc()
}

// RecordReconnectAttempt records a reconnect attempt
func (m *MQTTMetrics) RecordReconnectAttempt() {
	m.ReconnectAttempts.Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.ConnectionStatus.Desc()
	m.MessagesDelivered.Describe(ch)
	m.Errors.Describe(ch)
	ch <- m.ReconnectAttempts.Desc()
	ch <- m.MessageSize.Desc()
	ch <- m.PublishLatency.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.ConnectionStatus
	m.MessagesDelivered.Collect(ch)
	m.Errors.Collect(ch)
	ch <- m.ReconnectAttempts
	ch <- m.MessageSize
	ch <- m.PublishLatency
}
