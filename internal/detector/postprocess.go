// postprocess.go detection head decoding and non-maximum suppression
package detector

import (
	"sort"
)

// headOutput is the raw detection head, laid out as [4+classes, preds]
// regardless of how the converter ordered the axes.
type headOutput struct {
	data       []float32
	channels   int
	preds      int
	transposed bool
}

func (h headOutput) at(channel, pred int) float32 {
	if h.transposed {
		return h.data[pred*h.channels+channel]
	}
	return h.data[channel*h.preds+pred]
}

// boxesNormalized reports whether the box channels are in the 0..1 range.
// The standard export writes normalized coordinates, other converters keep
// input pixels.
func (h headOutput) boxesNormalized() bool {
	var maxVal float32
	for c := 0; c < 4; c++ {
		for i := 0; i < h.preds; i++ {
			if v := h.at(c, i); v > maxVal {
				maxVal = v
			}
		}
	}
	return maxVal <= 1.5
}

// decodeDetections converts the raw head into frame-space detections:
// confidence filter, mapping back through the letterbox, agnostic NMS and
// the final cap.
func decodeDetections(raw headOutput, geo letterboxGeometry, frameW, frameH int) []Detection {
	unitX, unitY := float32(1), float32(1)
	if raw.boxesNormalized() {
		unitX = float32(geo.inputW)
		unitY = float32(geo.inputH)
	}

	candidates := make([]Detection, 0, raw.preds/8)
	for i := 0; i < raw.preds; i++ {
		classID, score := bestClass(raw, i)
		if score < ConfThreshold {
			continue
		}

		cx := float64(raw.at(0, i) * unitX)
		cy := float64(raw.at(1, i) * unitY)
		bw := float64(raw.at(2, i) * unitX)
		bh := float64(raw.at(3, i) * unitY)

		x1 := (cx - bw/2 - geo.padX) / geo.scale
		y1 := (cy - bh/2 - geo.padY) / geo.scale
		x2 := (cx + bw/2 - geo.padX) / geo.scale
		y2 := (cy + bh/2 - geo.padY) / geo.scale

		candidates = append(candidates, Detection{
			ClassID:    classID,
			Confidence: float64(score),
			BBox: [4]float64{
				clamp(x1, 0, float64(frameW)),
				clamp(y1, 0, float64(frameH)),
				clamp(x2, 0, float64(frameW)),
				clamp(y2, 0, float64(frameH)),
			},
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	kept := suppress(candidates, IoUThreshold)
	if len(kept) > MaxDetections {
		kept = kept[:MaxDetections]
	}
	return kept
}

// bestClass returns the highest scoring class for one prediction column.
func bestClass(raw headOutput, pred int) (classID int, score float32) {
	for c := 4; c < raw.channels; c++ {
		if v := raw.at(c, pred); v > score {
			score = v
			classID = c - 4
		}
	}
	return classID, score
}

// suppress applies greedy class-agnostic non-maximum suppression to
// candidates sorted by confidence.
func suppress(candidates []Detection, iouThreshold float64) []Detection {
	kept := make([]Detection, 0, len(candidates))
	for _, cand := range candidates {
		overlaps := false
		for i := range kept {
			if iou(cand.BBox, kept[i].BBox) > iouThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, cand)
		}
	}
	return kept
}

// iou computes intersection over union of two x1,y1,x2,y2 boxes.
func iou(a, b [4]float64) float64 {
	ix1 := max(a[0], b[0])
	iy1 := max(a[1], b[1])
	ix2 := min(a[2], b[2])
	iy2 := min(a[3], b[3])

	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
