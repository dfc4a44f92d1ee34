package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildHead assembles a channel-major detection head from per-prediction
// boxes (cx, cy, w, h) and class scores.
func buildHead(boxes [][4]float32, scores [][]float32) headOutput {
	preds := len(boxes)
	channels := 4 + len(scores[0])
	data := make([]float32, channels*preds)
	for i, box := range boxes {
		for c := 0; c < 4; c++ {
			data[c*preds+i] = box[c]
		}
		for c, s := range scores[i] {
			data[(4+c)*preds+i] = s
		}
	}
	return headOutput{data: data, channels: channels, preds: preds}
}

func plainGeometry(inputW, inputH int) letterboxGeometry {
	return letterboxGeometry{inputW: inputW, inputH: inputH, scale: 1, padX: 0, padY: 0}
}

func TestHeadOutputAt(t *testing.T) {
	t.Parallel()

	head := buildHead(
		[][4]float32{{0.1, 0.2, 0.3, 0.4}, {0.5, 0.6, 0.7, 0.8}},
		[][]float32{{0.9, 0.1}, {0.2, 0.8}},
	)

	assert.InDelta(t, 0.1, head.at(0, 0), 1e-6)
	assert.InDelta(t, 0.5, head.at(0, 1), 1e-6)
	assert.InDelta(t, 0.9, head.at(4, 0), 1e-6)
	assert.InDelta(t, 0.8, head.at(5, 1), 1e-6)

	transposed := headOutput{
		data:       []float32{0.1, 0.2, 0.3, 0.4, 0.9, 0.1, 0.5, 0.6, 0.7, 0.8, 0.2, 0.8},
		channels:   6,
		preds:      2,
		transposed: true,
	}
	assert.InDelta(t, 0.1, transposed.at(0, 0), 1e-6)
	assert.InDelta(t, 0.5, transposed.at(0, 1), 1e-6)
	assert.InDelta(t, 0.9, transposed.at(4, 0), 1e-6)
	assert.InDelta(t, 0.8, transposed.at(5, 1), 1e-6)
}

func TestBestClass(t *testing.T) {
	t.Parallel()

	head := buildHead(
		[][4]float32{{0.5, 0.5, 0.2, 0.2}},
		[][]float32{{0.1, 0.7, 0.3}},
	)

	classID, score := bestClass(head, 0)
	assert.Equal(t, 1, classID)
	assert.InDelta(t, 0.7, score, 1e-6)
}

func TestIoU(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b [4]float64
		want float64
	}{
		{"identical", [4]float64{0, 0, 10, 10}, [4]float64{0, 0, 10, 10}, 1.0},
		{"disjoint", [4]float64{0, 0, 10, 10}, [4]float64{20, 20, 30, 30}, 0.0},
		{"touching edges", [4]float64{0, 0, 10, 10}, [4]float64{10, 0, 20, 10}, 0.0},
		{"half horizontal overlap", [4]float64{0, 0, 10, 10}, [4]float64{5, 0, 15, 10}, 50.0 / 150.0},
		{"contained quarter", [4]float64{0, 0, 10, 10}, [4]float64{0, 0, 5, 5}, 25.0 / 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, iou(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, iou(tt.b, tt.a), 1e-9, "iou must be symmetric")
		})
	}
}

func TestSuppressAgnostic(t *testing.T) {
	t.Parallel()

	// Sorted by confidence, the second box overlaps the first heavily but
	// carries a different class. Agnostic NMS drops it anyway.
	candidates := []Detection{
		{ClassID: 0, Confidence: 0.9, BBox: [4]float64{100, 100, 200, 200}},
		{ClassID: 1, Confidence: 0.8, BBox: [4]float64{105, 105, 205, 205}},
		{ClassID: 0, Confidence: 0.7, BBox: [4]float64{300, 300, 400, 400}},
	}

	kept := suppress(candidates, IoUThreshold)
	require.Len(t, kept, 2)
	assert.InDelta(t, 0.9, kept[0].Confidence, 1e-9)
	assert.InDelta(t, 0.7, kept[1].Confidence, 1e-9)
}

func TestDecodeDetectionsNormalizedBoxes(t *testing.T) {
	t.Parallel()

	head := buildHead(
		[][4]float32{
			{0.5, 0.5, 0.25, 0.25}, // centered box, strong hit
			{0.2, 0.2, 0.1, 0.1},   // below the confidence threshold
		},
		[][]float32{
			{0.05, 0.9},
			{0.3, 0.2},
		},
	)

	detections := decodeDetections(head, plainGeometry(320, 320), 320, 320)
	require.Len(t, detections, 1)

	d := detections[0]
	assert.Equal(t, 1, d.ClassID)
	assert.InDelta(t, 0.9, d.Confidence, 1e-6)
	assert.InDelta(t, 120, d.BBox[0], 0.5)
	assert.InDelta(t, 120, d.BBox[1], 0.5)
	assert.InDelta(t, 200, d.BBox[2], 0.5)
	assert.InDelta(t, 200, d.BBox[3], 0.5)
}

func TestDecodeDetectionsPixelBoxes(t *testing.T) {
	t.Parallel()

	// Coordinates above the normalized range are taken as input pixels.
	head := buildHead(
		[][4]float32{{160, 160, 80, 80}},
		[][]float32{{0.88}},
	)

	detections := decodeDetections(head, plainGeometry(320, 320), 320, 320)
	require.Len(t, detections, 1)
	assert.InDelta(t, 120, detections[0].BBox[0], 0.5)
	assert.InDelta(t, 200, detections[0].BBox[2], 0.5)
}

func TestDecodeDetectionsMapsThroughLetterbox(t *testing.T) {
	t.Parallel()

	// A 640x480 frame letterboxed into 320x320: scale 0.5, 40px of vertical
	// padding. A centered input box must land back in frame coordinates.
	geo := letterboxGeometry{inputW: 320, inputH: 320, scale: 0.5, padX: 0, padY: 40}

	head := buildHead(
		[][4]float32{{0.5, 0.5, 0.25, 0.25}},
		[][]float32{{0.95}},
	)

	detections := decodeDetections(head, geo, 640, 480)
	require.Len(t, detections, 1)

	d := detections[0]
	assert.InDelta(t, 240, d.BBox[0], 0.5)
	assert.InDelta(t, 160, d.BBox[1], 0.5)
	assert.InDelta(t, 400, d.BBox[2], 0.5)
	assert.InDelta(t, 320, d.BBox[3], 0.5)
}

func TestDecodeDetectionsClampsToFrame(t *testing.T) {
	t.Parallel()

	// Box hanging over the top-left corner gets clipped at zero.
	head := buildHead(
		[][4]float32{{0.02, 0.02, 0.2, 0.2}},
		[][]float32{{0.8}},
	)

	detections := decodeDetections(head, plainGeometry(320, 320), 320, 320)
	require.Len(t, detections, 1)
	assert.GreaterOrEqual(t, detections[0].BBox[0], 0.0)
	assert.GreaterOrEqual(t, detections[0].BBox[1], 0.0)
}

func TestDecodeDetectionsConfidenceBoundary(t *testing.T) {
	t.Parallel()

	head := buildHead(
		[][4]float32{
			{0.3, 0.3, 0.1, 0.1},
			{0.7, 0.7, 0.1, 0.1},
		},
		[][]float32{
			{ConfThreshold}, // exactly at the threshold stays
			{0.449},         // just below goes
		},
	)

	detections := decodeDetections(head, plainGeometry(320, 320), 320, 320)
	require.Len(t, detections, 1)
	assert.InDelta(t, ConfThreshold, detections[0].Confidence, 1e-6)
}

func TestDecodeDetectionsCapsAndSorts(t *testing.T) {
	t.Parallel()

	// Five well separated boxes above the threshold, output must keep the
	// three strongest in descending order.
	boxes := [][4]float32{
		{0.1, 0.1, 0.05, 0.05},
		{0.3, 0.3, 0.05, 0.05},
		{0.5, 0.5, 0.05, 0.05},
		{0.7, 0.7, 0.05, 0.05},
		{0.9, 0.9, 0.05, 0.05},
	}
	scores := [][]float32{{0.5}, {0.8}, {0.6}, {0.9}, {0.7}}

	detections := decodeDetections(buildHead(boxes, scores), plainGeometry(320, 320), 320, 320)
	require.Len(t, detections, MaxDetections)
	assert.InDelta(t, 0.9, detections[0].Confidence, 1e-6)
	assert.InDelta(t, 0.8, detections[1].Confidence, 1e-6)
	assert.InDelta(t, 0.7, detections[2].Confidence, 1e-6)
}

func TestDecodeDetectionsEmptyFrame(t *testing.T) {
	t.Parallel()

	head := buildHead(
		[][4]float32{{0.5, 0.5, 0.2, 0.2}},
		[][]float32{{0.1}},
	)

	detections := decodeDetections(head, plainGeometry(320, 320), 320, 320)
	assert.Empty(t, detections)
}
