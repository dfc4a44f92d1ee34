// pipeline.go: Package pipeline runs one camera frame through admission,
// model load, decode, inference and fan-out. It owns the ordering of those
// steps and the single-slot admission gate around them; transports stay out
// of it entirely.
package pipeline

import (
	"context"
	"image"
	"log/slog"
	"strconv"
	"time"

	"github.com/kawakawa0804/umi-no-me-web2/internal/auditlog"
	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/datastore"
	"github.com/kawakawa0804/umi-no-me-web2/internal/detector"
	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
	"github.com/kawakawa0804/umi-no-me-web2/internal/gate"
	"github.com/kawakawa0804/umi-no-me-web2/internal/imageproc"
	"github.com/kawakawa0804/umi-no-me-web2/internal/logging"
	"github.com/kawakawa0804/umi-no-me-web2/internal/mqtt"
	"github.com/kawakawa0804/umi-no-me-web2/internal/observability"
)

// Rejection and refusal conditions a caller is expected to branch on. The
// transport layer maps these to status codes, everything else surfaces as an
// internal failure.
var (
	// ErrBusy means another frame already holds the inference slot.
	ErrBusy = errors.NewStd("server busy")

	// ErrModelUnavailable means the requested model artifact could not be
	// loaded. The load error itself is logged, not returned, the caller
	// only needs the refusal.
	ErrModelUnavailable = errors.NewStd("model not available")

	// ErrNoImage means the request carried no frame bytes at all.
	ErrNoImage = errors.NewStd("no image provided")
)

// Predictor runs inference on a decoded frame. The concrete engine satisfies
// it; tests substitute deterministic fakes.
type Predictor interface {
	Predict(img *image.NRGBA) ([]detector.Detection, error)
}

// ModelSource resolves request aliases to artifact paths and hands out a
// ready Predictor for a path. Loaded reports the resident model for status
// surfaces.
type ModelSource interface {
	Resolve(alias string) string
	EnsureLoaded(path string) (Predictor, error)
	LabelFor(classID int) string
	Loaded() (string, bool)
}

// RegistrySource adapts the detector registry to the ModelSource interface.
type RegistrySource struct {
	Registry *detector.Registry
}

func (s RegistrySource) Resolve(alias string) string {
	return s.Registry.Resolve(alias)
}

func (s RegistrySource) EnsureLoaded(path string) (Predictor, error) {
	engine, err := s.Registry.EnsureLoaded(path)
	if err != nil {
		return nil, err
	}
	return engine, nil
}

func (s RegistrySource) LabelFor(classID int) string {
	return s.Registry.LabelFor(classID)
}

func (s RegistrySource) Loaded() (string, bool) {
	return s.Registry.Loaded()
}

// Request is one frame submitted for detection. ImageData holds the encoded
// bytes as received, extraction from the transport envelope has already
// happened by the time a Request exists.
type Request struct {
	ImageData  []byte // encoded frame, empty when the request carried none
	ModelAlias string // optional model alias from the request
	SourceIP   string // client address, recorded with persisted captures
}

// Result is a completed detection pass. Detections is never nil, an empty
// frame yields an empty slice.
type Result struct {
	Detections []detector.Detection
	ModelPath  string        // artifact the frame actually ran on
	Width      int           // frame width after bounding
	Height     int           // frame height after bounding
	Elapsed    time.Duration // admission to parsed output
}

// Pipeline orchestrates detection for one service instance. All fields are
// set at construction and never change, Process is safe for concurrent use.
type Pipeline struct {
	settings  *conf.Settings
	admission *gate.Gate
	models    ModelSource
	audit     *auditlog.Store
	store     datastore.Interface // nil when no database output is enabled
	publisher mqtt.Client         // nil when MQTT is disabled
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates a Pipeline. The audit store and metrics are required, store and
// publisher may be nil when the matching output is disabled.
func New(settings *conf.Settings, admission *gate.Gate, models ModelSource, audit *auditlog.Store,
	store datastore.Interface, publisher mqtt.Client, observedMetrics *observability.Metrics) *Pipeline {
	logger := logging.ForService("pipeline")
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		settings:  settings,
		admission: admission,
		models:    models,
		audit:     audit,
		store:     store,
		publisher: publisher,
		metrics:   observedMetrics,
		logger:    logger,
	}
}

// Process runs one frame through the full detection pass. The admission slot
// is claimed before anything else and released on every path out, so a
// rejected caller can retry the moment the current frame finishes.
//
// Step order is load-bearing: a busy instance answers ErrBusy even when the
// request is also malformed, and a broken model answers ErrModelUnavailable
// before the frame bytes are looked at.
func (p *Pipeline) Process(ctx context.Context, req *Request) (*Result, error) {
	if !p.admission.TryAcquire() {
		p.metrics.Gate.RecordAdmission(false)
		return nil, ErrBusy
	}
	p.metrics.Gate.RecordAdmission(true)
	p.metrics.Gate.SetInFlight(float64(p.admission.InFlight()))

	start := time.Now()
	defer func() {
		p.admission.Release()
		p.metrics.Gate.SetInFlight(float64(p.admission.InFlight()))
		p.metrics.Gate.RecordHoldDuration(time.Since(start).Seconds())
	}()

	modelPath := p.models.Resolve(req.ModelAlias)
	engine, err := p.models.EnsureLoaded(modelPath)
	if err != nil {
		p.logger.Error("Model not available", "model", modelPath, "error", err)
		return nil, ErrModelUnavailable
	}

	if len(req.ImageData) == 0 {
		return nil, ErrNoImage
	}

	img, err := imageproc.Decode(req.ImageData)
	if err != nil {
		p.metrics.Detector.RecordDecodeError()
		p.logger.Debug("Frame decode failed", "bytes", len(req.ImageData), "error", err)
		return nil, err
	}
	frame := imageproc.BoundWidth(img, imageproc.MaxFrameWidth)

	invokeStart := time.Now()
	detections, err := engine.Predict(frame)
	p.metrics.Detector.RecordModelInvoke(modelPath, time.Since(invokeStart).Seconds())
	p.metrics.Detector.RecordInference(modelPath, time.Since(start).Seconds(), err)
	if err != nil {
		p.logger.Error("Inference failed", "model", modelPath, "error", err)
		return nil, err
	}
	if detections == nil {
		detections = []detector.Detection{}
	}

	elapsed := time.Since(start)
	p.metrics.Detector.SetProcessTime(elapsed.Seconds() * 1000)
	for i := range detections {
		p.metrics.Detector.IncrementDetectionCounter(p.className(detections[i].ClassID))
	}

	if len(detections) > 0 {
		receivedAt := time.Now()
		p.appendAudit(detections)
		p.persist(receivedAt, req, modelPath, frame, detections, elapsed)
		p.publish(ctx, receivedAt, modelPath, detections)
	}

	p.logger.Debug("Frame processed",
		"model", modelPath,
		"detections", len(detections),
		"width", frame.Rect.Dx(),
		"height", frame.Rect.Dy(),
		"elapsed_ms", elapsed.Milliseconds())

	return &Result{
		Detections: detections,
		ModelPath:  modelPath,
		Width:      frame.Rect.Dx(),
		Height:     frame.Rect.Dy(),
		Elapsed:    elapsed,
	}, nil
}

// className labels a class for metrics, falling back to the numeric id when
// the model shipped no label table.
func (p *Pipeline) className(classID int) string {
	if label := p.models.LabelFor(classID); label != "" {
		return label
	}
	return strconv.Itoa(classID)
}
