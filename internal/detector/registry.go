// registry.go lazy model loading with a single resident artifact
package detector

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
	"github.com/kawakawa0804/umi-no-me-web2/internal/logging"
	"github.com/kawakawa0804/umi-no-me-web2/internal/observability/metrics"
)

// loadedModel pairs a resident engine with the path it was loaded from.
type loadedModel struct {
	path   string
	engine *Engine
}

// Registry resolves request-supplied model aliases and keeps at most one
// engine resident. Loading is lazy so the service starts instantly even
// when the artifact is large or missing.
type Registry struct {
	settings *conf.Settings
	current  atomic.Pointer[loadedModel]
	mu       sync.Mutex
	logger   *slog.Logger
	metrics  *metrics.DetectorMetrics // nil when load outcomes are not collected

	// loadFn is swapped out in tests
	loadFn func(path string) (*Engine, error)

	labelsOnce sync.Once
	labels     []string
}

// NewRegistry creates a registry over the given settings. detectorMetrics may
// be nil.
func NewRegistry(settings *conf.Settings, detectorMetrics *metrics.DetectorMetrics) *Registry {
	logger := logging.ForService("detector")
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		settings: settings,
		logger:   logger,
		metrics:  detectorMetrics,
		loadFn:   NewEngine,
	}
}

func (r *Registry) recordLoad(path string, err error) {
	if r.metrics != nil {
		r.metrics.RecordModelLoad(path, err)
	}
}

// Resolve maps a request-supplied alias to a model artifact path. Unknown
// or empty aliases fall back to the configured default.
func (r *Registry) Resolve(alias string) string {
	return r.settings.ResolveModelPath(alias)
}

// EnsureLoaded returns an engine for the given artifact path, loading it on
// first use. Only one artifact stays resident: asking for a different path
// drops the previous engine. Callers hold the admission gate, so nothing is
// mid-inference while the slot changes hands.
func (r *Registry) EnsureLoaded(path string) (*Engine, error) {
	// FAST PATH: the requested artifact is already resident
	if cur := r.current.Load(); cur != nil && cur.path == path {
		return cur.engine, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request may have loaded it while we waited for the lock
	if cur := r.current.Load(); cur != nil && cur.path == path {
		return cur.engine, nil
	}

	if _, err := os.Stat(expandModelPath(path)); err != nil {
		r.logger.Warn("model artifact not found", "path", path)
		r.recordLoad(path, err)
		// A failed stat leaves any resident engine in place.
		if r.metrics != nil && r.current.Load() != nil {
			r.metrics.SetModelLoaded(true)
		}
		return nil, errors.New(err).
			Component("detector").
			Category(errors.CategoryModelLoad).
			ModelContext(path).
			Context("operation", "stat").
			Build()
	}

	start := time.Now()
	engine, err := r.loadFn(path)
	if err != nil {
		// Drop whatever was resident so the next request starts from a
		// clean slot instead of serving a half torn down engine.
		if old := r.current.Swap(nil); old != nil {
			old.engine.Close()
		}
		r.recordLoad(path, err)
		return nil, errors.New(err).
			Component("detector").
			Category(errors.CategoryModelLoad).
			ModelContext(path).
			Timing("model-load", time.Since(start)).
			Build()
	}

	if old := r.current.Swap(&loadedModel{path: path, engine: engine}); old != nil {
		r.logger.Info("model slot reassigned", "previous", old.path, "current", path)
		old.engine.Close()
	}
	r.recordLoad(path, nil)

	return engine, nil
}

// Loaded reports the resident artifact path, if any.
func (r *Registry) Loaded() (string, bool) {
	if cur := r.current.Load(); cur != nil {
		return cur.path, true
	}
	return "", false
}

// Close drops the resident engine.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old := r.current.Swap(nil); old != nil {
		old.engine.Close()
		if r.metrics != nil {
			r.metrics.SetModelLoaded(false)
		}
	}
}

// LabelFor returns the class label for a class id, or an empty string when
// no label list is configured or the id is out of range. Labels load once
// from the configured list, one label per line.
func (r *Registry) LabelFor(classID int) string {
	r.labelsOnce.Do(func() {
		if r.settings.Model.Labels == "" {
			return
		}
		labels, err := loadLabels(r.settings.Model.Labels)
		if err != nil {
			r.logger.Warn("failed to load class labels",
				"path", r.settings.Model.Labels, "error", err)
			return
		}
		r.labels = labels
	})

	if classID < 0 || classID >= len(r.labels) {
		return ""
	}
	return r.labels[classID]
}
