// engine.go TensorFlow Lite interpreter lifecycle and inference
package detector

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	tflite "github.com/tphakala/go-tflite"

	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
	"github.com/kawakawa0804/umi-no-me-web2/internal/logging"
)

var computeEnvOnce sync.Once

// configureComputeEnv pins the numeric libraries to a single thread each.
// On the small instances this service targets a second compute thread only
// adds scheduler churn. Values already present in the environment win.
func configureComputeEnv() {
	computeEnvOnce.Do(func() {
		for _, kv := range [][2]string{
			{"OMP_NUM_THREADS", "1"},
			{"OPENBLAS_NUM_THREADS", "1"},
			{"MKL_NUM_THREADS", "1"},
		} {
			if _, ok := os.LookupEnv(kv[0]); !ok {
				if err := os.Setenv(kv[0], kv[1]); err != nil {
					slog.Warn("Failed to set compute environment", "variable", kv[0], "error", err)
				}
			}
		}
	})
}

// Engine wraps a single TensorFlow Lite interpreter together with the
// geometry of its input tensor.
type Engine struct {
	interpreter *tflite.Interpreter
	modelPath   string

	inputWidth  int
	inputHeight int
	nchw        bool // input layout is [1,3,H,W] instead of [1,H,W,3]
	numClasses  int

	// Serializes interpreter access. The admission gate already allows only
	// one inference at a time, this guards direct callers such as the
	// benchmark command.
	mu sync.Mutex

	logger *slog.Logger
}

// NewEngine loads the model artifact at modelPath and prepares an
// interpreter for it. The interpreter is pinned to one thread.
func NewEngine(modelPath string) (*Engine, error) {
	configureComputeEnv()

	logger := logging.ForService("detector")
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()

	resolvedPath := expandModelPath(modelPath)
	data, err := os.ReadFile(resolvedPath) //nolint:gosec // G304: path comes from application settings
	if err != nil {
		return nil, errors.New(err).
			Component("detector").
			Category(errors.CategoryFileIO).
			ModelContext(resolvedPath).
			Context("operation", "read").
			Timing("model-file-read", time.Since(start)).
			Build()
	}

	model := tflite.NewModel(data)
	if model == nil {
		return nil, errors.Newf("cannot load TensorFlow Lite model").
			Component("detector").
			Category(errors.CategoryModelInit).
			ModelContext(resolvedPath).
			Context("model_size_mb", len(data)/1024/1024).
			Timing("model-init", time.Since(start)).
			Build()
	}

	// The interpreter runs single threaded, concurrency is handled one
	// level up by the admission gate.
	options := tflite.NewInterpreterOptions()
	options.SetNumThread(1)
	options.SetErrorReporter(func(msg string, userData any) {
		logger.Error("TFLite error", "message", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		return nil, errors.Newf("cannot create interpreter").
			Component("detector").
			Category(errors.CategoryModelInit).
			ModelContext(resolvedPath).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		return nil, errors.Newf("tensor allocation failed: %v", status).
			Component("detector").
			Category(errors.CategoryModelInit).
			ModelContext(resolvedPath).
			Build()
	}

	engine := &Engine{
		interpreter: interpreter,
		modelPath:   resolvedPath,
		logger:      logger,
	}

	if err := engine.readTensorGeometry(); err != nil {
		interpreter.Delete()
		return nil, err
	}

	// The interpreter keeps its own copy of the model, reclaim the file
	// buffer right away instead of waiting for the next cycle.
	runtime.GC()

	logger.Info("detection model loaded",
		"path", resolvedPath,
		"input_width", engine.inputWidth,
		"input_height", engine.inputHeight,
		"classes", engine.numClasses,
		"load_time_ms", time.Since(start).Milliseconds())

	return engine, nil
}

// expandModelPath resolves env vars and a leading ~/ in a configured path.
func expandModelPath(modelPath string) string {
	expanded := os.ExpandEnv(modelPath)
	if strings.HasPrefix(expanded, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			expanded = filepath.Join(homeDir, expanded[2:])
		}
	}
	return expanded
}

// readTensorGeometry validates the model's tensor shapes and records the
// input layout and class count.
func (e *Engine) readTensorGeometry() error {
	inputTensor := e.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return errors.Newf("cannot get input tensor").
			Component("detector").
			Category(errors.CategoryValidation).
			ModelContext(e.modelPath).
			Build()
	}
	if inputTensor.NumDims() != 4 {
		return errors.Newf("unexpected input rank %d, want 4", inputTensor.NumDims()).
			Component("detector").
			Category(errors.CategoryValidation).
			ModelContext(e.modelPath).
			Build()
	}

	switch {
	case inputTensor.Dim(3) == 3:
		e.nchw = false
		e.inputHeight = inputTensor.Dim(1)
		e.inputWidth = inputTensor.Dim(2)
	case inputTensor.Dim(1) == 3:
		e.nchw = true
		e.inputHeight = inputTensor.Dim(2)
		e.inputWidth = inputTensor.Dim(3)
	default:
		return errors.Newf("input tensor has no 3 channel axis").
			Component("detector").
			Category(errors.CategoryValidation).
			ModelContext(e.modelPath).
			Context("dims", fmt.Sprintf("%dx%dx%dx%d",
				inputTensor.Dim(0), inputTensor.Dim(1), inputTensor.Dim(2), inputTensor.Dim(3))).
			Build()
	}

	outputTensor := e.interpreter.GetOutputTensor(0)
	if outputTensor == nil {
		return errors.Newf("cannot get output tensor").
			Component("detector").
			Category(errors.CategoryValidation).
			ModelContext(e.modelPath).
			Build()
	}
	if outputTensor.NumDims() != 3 {
		return errors.Newf("unexpected output rank %d, want 3", outputTensor.NumDims()).
			Component("detector").
			Category(errors.CategoryValidation).
			ModelContext(e.modelPath).
			Build()
	}

	channels := outputTensor.Dim(1)
	preds := outputTensor.Dim(2)
	// Detection heads lay the output out as [1, 4+classes, preds], some
	// converters transpose the last two axes.
	if channels > preds {
		channels, preds = preds, channels
	}
	if channels <= 4 {
		return errors.Newf("output tensor too small for a detection head: %d channels", channels).
			Component("detector").
			Category(errors.CategoryValidation).
			ModelContext(e.modelPath).
			Build()
	}
	e.numClasses = channels - 4

	return nil
}

// ModelPath returns the path of the loaded artifact.
func (e *Engine) ModelPath() string {
	return e.modelPath
}

// NumClasses returns the number of classes in the detection head.
func (e *Engine) NumClasses() int {
	return e.numClasses
}

// Predict runs the detection model on a decoded frame and returns the
// detections that survive the inference profile, sorted by confidence.
func (e *Engine) Predict(img *image.NRGBA) ([]Detection, error) {
	if img == nil {
		return nil, errors.Newf("nil image").
			Component("detector").
			Category(errors.CategoryValidation).
			Build()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	inputTensor := e.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return nil, errors.Newf("cannot get input tensor").
			Component("detector").
			Category(errors.CategoryInference).
			ModelContext(e.modelPath).
			Build()
	}

	geo := fitToInput(img, e.inputWidth, e.inputHeight, e.nchw, inputTensor.Float32s())

	if status := e.interpreter.Invoke(); status != tflite.OK {
		return nil, errors.Newf("tensor invoke failed: %v", status).
			Component("detector").
			Category(errors.CategoryInference).
			ModelContext(e.modelPath).
			Build()
	}

	outputTensor := e.interpreter.GetOutputTensor(0)
	if outputTensor == nil {
		return nil, errors.Newf("cannot get output tensor").
			Component("detector").
			Category(errors.CategoryInference).
			ModelContext(e.modelPath).
			Build()
	}

	raw, err := extractHead(outputTensor)
	if err != nil {
		return nil, err
	}

	detections := decodeDetections(raw, geo, img.Bounds().Dx(), img.Bounds().Dy())
	return detections, nil
}

// Close releases the interpreter. The registry calls this while holding the
// admission gate, so no inference is in flight.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.interpreter != nil {
		e.interpreter.Delete()
		e.interpreter = nil
	}
}

// extractHead copies the detection head out of the output tensor.
func extractHead(tensor *tflite.Tensor) (headOutput, error) {
	channels := tensor.Dim(1)
	preds := tensor.Dim(2)
	transposed := false
	if channels > preds {
		channels, preds = preds, channels
		transposed = true
	}

	values := tensor.Float32s()
	if len(values) < channels*preds {
		return headOutput{}, errors.Newf("output tensor shorter than its shape: %d < %d",
			len(values), channels*preds).
			Component("detector").
			Category(errors.CategoryExtraction).
			Build()
	}

	data := make([]float32, channels*preds)
	copy(data, values)

	return headOutput{
		data:       data,
		channels:   channels,
		preds:      preds,
		transposed: transposed,
	}, nil
}
