// detector.go: Package detector runs the object detection model on decoded
// camera frames. It wraps a TensorFlow Lite interpreter behind a registry
// that loads model artifacts lazily and keeps exactly one resident.
package detector

// Inference profile. The service targets small CPU instances, so the input
// stays small and the head output is cut down hard before it leaves the
// package.
const (
	// DefaultInputSize is the square model input expected from the standard
	// export. The engine reads the real size from the input tensor, this
	// value only seeds validation and tests.
	DefaultInputSize = 320

	// ConfThreshold is the minimum confidence kept after decoding the
	// detection head.
	ConfThreshold = 0.45

	// IoUThreshold is the overlap above which two boxes are considered the
	// same object during non-maximum suppression.
	IoUThreshold = 0.5

	// MaxDetections caps how many detections a single frame may return.
	MaxDetections = 3
)

// Detection is one detected object. Coordinates are pixels in the frame the
// pipeline ran inference on, after width bounding.
type Detection struct {
	ClassID    int        `json:"class_id"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"` // x1, y1, x2, y2
}
