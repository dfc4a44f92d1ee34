// Package metrics provides audit trail metrics for observability
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditLogMetrics contains Prometheus metrics for the CSV audit trail.
type AuditLogMetrics struct {
	registry *prometheus.Registry

	RowsAppended prometheus.Counter
	AppendErrors prometheus.Counter
	FileSize     prometheus.Gauge
}

// NewAuditLogMetrics creates and registers new audit trail metrics
func NewAuditLogMetrics(registry *prometheus.Registry) (*AuditLogMetrics, error) {
	m := &AuditLogMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit log metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register audit log metrics: %w", err)
	}
	return m, nil
}

func (m *AuditLogMetrics) initMetrics() error {
	m.RowsAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auditlog_rows_appended_total",
			Help: "Total number of detection rows appended to the CSV trail",
		},
	)

	m.AppendErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auditlog_append_errors_total",
			Help: "Total number of failed CSV append operations",
		},
	)

	m.FileSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "auditlog_file_size_bytes",
			Help: "Current size of the CSV trail file",
		},
	)

	return nil
}

// RecordAppend records a successful append of n rows
func (m *AuditLogMetrics) RecordAppend(rows int) {
	m.RowsAppended.Add(float64(rows))
}

// RecordAppendError records a failed append operation
func (m *AuditLogMetrics) RecordAppendError() {
	m.AppendErrors.Inc()
}

// SetFileSize sets the current trail file size
func (m *AuditLogMetrics) SetFileSize(sizeBytes int64) {
	m.FileSize.Set(float64(sizeBytes))
}

// Describe implements the prometheus.Collector interface.
func (m *AuditLogMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.RowsAppended.Desc()
	ch <- m.AppendErrors.Desc()
	ch <- m.FileSize.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *AuditLogMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.RowsAppended
	ch <- m.AppendErrors
	ch <- m.FileSize
}
