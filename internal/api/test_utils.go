// test_utils.go: Package api provides shared test utilities for API tests.

package api

import (
	"image"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kawakawa0804/umi-no-me-web2/internal/auditlog"
	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/datastore"
	"github.com/kawakawa0804/umi-no-me-web2/internal/detector"
	"github.com/kawakawa0804/umi-no-me-web2/internal/gate"
	"github.com/kawakawa0804/umi-no-me-web2/internal/observability"
	"github.com/kawakawa0804/umi-no-me-web2/internal/pipeline"
)

// MockDataStore implements datastore.Interface for testing. Shared across
// all test files in this package.
type MockDataStore struct {
	mock.Mock
}

func (m *MockDataStore) Open() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) Save(capture *datastore.FrameCapture, detections []datastore.DetectionRow) error {
	args := m.Called(capture, detections)
	return args.Error(0)
}

func (m *MockDataStore) Get(id uint) (datastore.FrameCapture, error) {
	args := m.Called(id)
	return args.Get(0).(datastore.FrameCapture), args.Error(1)
}

func (m *MockDataStore) GetRecent(limit int) ([]datastore.FrameCapture, error) {
	args := m.Called(limit)
	return args.Get(0).([]datastore.FrameCapture), args.Error(1)
}

func (m *MockDataStore) CountDetections() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// stubPredictor returns canned detections, optionally blocking so tests can
// hold the admission slot across a second request.
type stubPredictor struct {
	detections []detector.Detection
	err        error

	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (s *stubPredictor) Predict(img *image.NRGBA) ([]detector.Detection, error) {
	s.mu.Lock()
	s.calls++
	entered := s.entered
	s.entered = nil
	s.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if s.release != nil {
		<-s.release
	}
	return s.detections, s.err
}

// stubModels implements pipeline.ModelSource with the registry's alias
// fallback rule.
type stubModels struct {
	predictor *stubPredictor
	loadErr   error
	labels    map[int]string

	mu       sync.Mutex
	resolved []string
}

func (s *stubModels) Resolve(alias string) string {
	if alias != "" {
		return "models/" + alias + ".tflite"
	}
	return "models/best.tflite"
}

func (s *stubModels) EnsureLoaded(path string) (pipeline.Predictor, error) {
	s.mu.Lock()
	s.resolved = append(s.resolved, path)
	s.mu.Unlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.predictor, nil
}

func (s *stubModels) LabelFor(classID int) string {
	return s.labels[classID]
}

func (s *stubModels) Loaded() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.resolved) > 0 && s.loadErr == nil {
		return s.resolved[len(s.resolved)-1], true
	}
	return "", false
}

func (s *stubModels) lastResolved() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.resolved) == 0 {
		return ""
	}
	return s.resolved[len(s.resolved)-1]
}

// testEnv bundles everything a handler test needs.
type testEnv struct {
	echo       *echo.Echo
	controller *Controller
	settings   *conf.Settings
	admission  *gate.Gate
	models     *stubModels
	audit      *auditlog.Store
	ds         *MockDataStore // nil unless withDatastore was used
}

type envOption func(*testEnv)

// withDatastore attaches a mock datastore to the environment.
func withDatastore(ds *MockDataStore) envOption {
	return func(env *testEnv) {
		env.ds = ds
	}
}

// withLoadError makes model loading fail.
func withLoadError(err error) envOption {
	return func(env *testEnv) {
		env.models.loadErr = err
	}
}

// withPredictor swaps the canned predictor.
func withPredictor(p *stubPredictor) envOption {
	return func(env *testEnv) {
		env.models.predictor = p
	}
}

// setupTestEnvironment creates a complete test environment: an Echo instance,
// settings, a live pipeline on stub models and a Controller with routes
// registered. The working directory is moved to a temp dir so the API log
// file lands there.
func setupTestEnvironment(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	// testing.T.Chdir needs Go 1.24; this is its documented expansion.
	workDir := t.TempDir()
	prevWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workDir))
	t.Setenv("PWD", workDir)
	t.Cleanup(func() { _ = os.Chdir(prevWD) })

	e := echo.New()

	settings := &conf.Settings{}
	settings.Debug = true
	settings.Version = "test"
	settings.Main.Name = "uminome-test"
	settings.Model.Path = "models/best.tflite"

	audit, err := auditlog.New(filepath.Join(t.TempDir(), "detections.csv"))
	require.NoError(t, err)

	observedMetrics, err := observability.NewMetrics()
	require.NoError(t, err)

	env := &testEnv{
		echo:      e,
		settings:  settings,
		admission: gate.New(),
		models: &stubModels{
			predictor: &stubPredictor{detections: sampleDetections()},
			labels:    map[int]string{0: "buoy", 1: "debris"},
		},
		audit: audit,
	}
	for _, opt := range opts {
		opt(env)
	}

	var ds datastore.Interface
	if env.ds != nil {
		ds = env.ds
	}

	proc := pipeline.New(settings, env.admission, env.models, audit, ds, nil, observedMetrics)

	logger := log.New(os.Stdout, "API TEST: ", log.LstdFlags)
	controller, err := New(e, settings, proc, audit, ds, env.admission, env.models, logger, observedMetrics)
	require.NoError(t, err)
	t.Cleanup(controller.Shutdown)

	env.controller = controller
	return env
}

func sampleDetections() []detector.Detection {
	return []detector.Detection{
		{ClassID: 0, Confidence: 0.91, BBox: [4]float64{10, 20, 110, 220}},
		{ClassID: 1, Confidence: 0.67, BBox: [4]float64{5, 5, 48, 64}},
	}
}
