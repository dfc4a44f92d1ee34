// model.go this code defines the data model for persisted detections
package datastore

import "time"

// FrameCapture represents a single analyzed frame that produced at least one
// detection. Frames with an empty result set are never persisted.
type FrameCapture struct {
	ID         uint      `gorm:"primaryKey"`
	ReceivedAt time.Time `gorm:"index:idx_captures_received_at"`
	SourceNode string    // instance name of the gateway that produced the capture
	ModelPath  string    // model artifact that ran the inference
	ClientIP   string
	Width      int // frame width after intake bounding
	Height     int
	Latency    time.Duration  // wall time from admission to parsed results
	Detections []DetectionRow `gorm:"foreignKey:CaptureID;constraint:OnDelete:CASCADE"`
}

// DetectionRow represents one detected box within a capture.
type DetectionRow struct {
	ID         uint `gorm:"primaryKey"`
	CaptureID  uint `gorm:"index;not null;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;foreignKey:CaptureID;references:ID"` // Foreign key to associate with FrameCapture
	ClassID    int  `gorm:"index:idx_detections_classid"`
	Label      string
	Confidence float64
	X1         float64
	Y1         float64
	X2         float64
	Y2         float64
}

// Copy creates a deep copy of the DetectionRow struct
func (r DetectionRow) Copy() DetectionRow {
	return DetectionRow{
		ID:         r.ID,
		CaptureID:  r.CaptureID,
		ClassID:    r.ClassID,
		Label:      r.Label,
		Confidence: r.Confidence,
		X1:         r.X1,
		Y1:         r.Y1,
		X2:         r.X2,
		Y2:         r.Y2,
	}
}
