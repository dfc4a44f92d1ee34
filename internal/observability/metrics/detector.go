// Package metrics provides custom Prometheus metrics for the detection gateway.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// DetectorMetrics contains all Prometheus metrics related to inference operations.
type DetectorMetrics struct {
	DetectionCounter *prometheus.CounterVec
	ProcessTimeGauge prometheus.Gauge

	// Performance metrics
	InferenceDuration   *prometheus.HistogramVec
	ModelInvokeDuration *prometheus.HistogramVec

	// Operation counters
	InferenceTotal  *prometheus.CounterVec
	InferenceErrors *prometheus.CounterVec
	ModelLoadTotal  *prometheus.CounterVec
	ModelLoadErrors *prometheus.CounterVec
	DecodeErrors    prometheus.Counter

	// Current state gauges
	ModelLoadedGauge prometheus.Gauge

	registry *prometheus.Registry
}

// NewDetectorMetrics creates a new instance of DetectorMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewDetectorMetrics(registry *prometheus.Registry) (*DetectorMetrics, error) {
	m := &DetectorMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize detector metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register detector metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for DetectorMetrics.
func (m *DetectorMetrics) initMetrics() error {
	m.DetectionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uminome_detections_total",
			Help: "Total number of detections partitioned by class ID.",
		},
		[]string{"class"},
	)
	m.ProcessTimeGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "uminome_processing_time_milliseconds",
			Help: "Most recent processing time for a detection request in milliseconds.",
		},
	)

	m.InferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uminome_inference_duration_seconds",
			Help:    "Time taken for a full inference pass including pre and post processing",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
		},
		[]string{"model"},
	)

	m.ModelInvokeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uminome_model_invoke_duration_seconds",
			Help:    "Time taken for TensorFlow Lite model invocation",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 8), // 1ms to ~256ms
		},
		[]string{"model"},
	)

	m.InferenceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uminome_inferences_total",
			Help: "Total number of inference requests",
		},
		[]string{"model", "status"},
	)

	m.InferenceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uminome_inference_errors_total",
			Help: "Total number of inference errors",
		},
		[]string{"model", "error_type"},
	)

	m.ModelLoadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uminome_model_load_total",
			Help: "Total number of model load attempts",
		},
		[]string{"model", "status"},
	)

	m.ModelLoadErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uminome_model_load_errors_total",
			Help: "Total number of model load errors",
		},
		[]string{"model", "error_type"},
	)

	m.DecodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "uminome_decode_errors_total",
			Help: "Total number of frames rejected because the image bytes could not be decoded",
		},
	)

	m.ModelLoadedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "uminome_model_loaded",
			Help: "Whether a detection model is currently loaded (1) or not (0)",
		},
	)

	return nil
}

// IncrementDetectionCounter increments the detection counter for a given class.
func (m *DetectorMetrics) IncrementDetectionCounter(class string) {
	m.DetectionCounter.WithLabelValues(class).Inc()
}

// SetProcessTime sets the most recent processing time for a detection request.
func (m *DetectorMetrics) SetProcessTime(milliseconds float64) {
	m.ProcessTimeGauge.Set(milliseconds)
}

// RecordInference records metrics for a full inference pass
func (m *DetectorMetrics) RecordInference(model string, durationSeconds float64, err error) {
	if err != nil {
		m.InferenceTotal.WithLabelValues(model, "error").Inc()
		m.InferenceErrors.WithLabelValues(model, categorizeError(err)).Inc()
	} else {
		m.InferenceTotal.WithLabelValues(model, "success").Inc()
		m.InferenceDuration.WithLabelValues(model).Observe(durationSeconds)
	}
}

// RecordModelInvoke records metrics for model invocation
func (m *DetectorMetrics) RecordModelInvoke(model string, durationSeconds float64) {
	m.ModelInvokeDuration.WithLabelValues(model).Observe(durationSeconds)
}

// RecordModelLoad records metrics for model loading operations
func (m *DetectorMetrics) RecordModelLoad(model string, err error) {
	if err != nil {
		m.ModelLoadTotal.WithLabelValues(model, "error").Inc()
		m.ModelLoadErrors.WithLabelValues(model, categorizeError(err)).Inc()
		m.ModelLoadedGauge.Set(0)
	} else {
		m.ModelLoadTotal.WithLabelValues(model, "success").Inc()
		m.ModelLoadedGauge.Set(1)
	}
}

// SetModelLoaded sets the model residency gauge without counting a load
// attempt.
func (m *DetectorMetrics) SetModelLoaded(loaded bool) {
	if loaded {
		m.ModelLoadedGauge.Set(1)
	} else {
		m.ModelLoadedGauge.Set(0)
	}
}

// RecordDecodeError counts a frame whose bytes could not be decoded.
func (m *DetectorMetrics) RecordDecodeError() {
	m.DecodeErrors.Inc()
}

// categorizeError returns a category string for the error type
func categorizeError(err error) string {
	if err == nil {
		return "none"
	}
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "tensor"):
		return "tensor_error"
	case strings.Contains(errStr, "invoke"):
		return "invoke_error"
	case strings.Contains(errStr, "decode"):
		return "decode_error"
	case strings.Contains(errStr, "file"), strings.Contains(errStr, "artifact"):
		return "file_error"
	default:
		return "other"
	}
}

// Describe implements the prometheus.Collector interface.
func (m *DetectorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DetectionCounter.Describe(ch)
	ch <- m.ProcessTimeGauge.Desc()

	m.InferenceDuration.Describe(ch)
	m.ModelInvokeDuration.Describe(ch)

	m.InferenceTotal.Describe(ch)
	m.InferenceErrors.Describe(ch)
	m.ModelLoadTotal.Describe(ch)
	m.ModelLoadErrors.Describe(ch)
	ch <- m.DecodeErrors.Desc()

	ch <- m.ModelLoadedGauge.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *DetectorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DetectionCounter.Collect(ch)
	ch <- m.ProcessTimeGauge

	m.InferenceDuration.Collect(ch)
	m.ModelInvokeDuration.Collect(ch)

	m.InferenceTotal.Collect(ch)
	m.InferenceErrors.Collect(ch)
	m.ModelLoadTotal.Collect(ch)
	m.ModelLoadErrors.Collect(ch)
	ch <- m.DecodeErrors

	ch <- m.ModelLoadedGauge
}
