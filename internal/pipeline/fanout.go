// fanout.go forwards completed detection batches to the audit CSV, the
// optional database and the MQTT broker. Fan-out failures are logged and
// counted but never fail the request, the detections were already computed
// and the client gets them regardless.
package pipeline

import (
	"context"
	"encoding/json"
	"image"
	"os"
	"time"

	"github.com/kawakawa0804/umi-no-me-web2/internal/datastore"
	"github.com/kawakawa0804/umi-no-me-web2/internal/detector"
)

// detectionMessage is the JSON document published to MQTT for each non-empty
// batch.
type detectionMessage struct {
	Source     string               `json:"source"`
	Time       string               `json:"time"`
	Model      string               `json:"model"`
	Detections []detector.Detection `json:"detections"`
}

// appendAudit writes the batch to the audit CSV. The CSV is the primary
// record, a failed append is loud in the log and the error counter but the
// response still goes out.
func (p *Pipeline) appendAudit(detections []detector.Detection) {
	if err := p.audit.Append(detections); err != nil {
		p.metrics.AuditLog.RecordAppendError()
		p.logger.Error("Audit append failed", "path", p.audit.Path(), "error", err)
		return
	}
	p.metrics.AuditLog.RecordAppend(len(detections))

	if info, err := os.Stat(p.audit.Path()); err == nil {
		p.metrics.AuditLog.SetFileSize(info.Size())
	}
}

// persist saves the capture and its detections to the configured database.
func (p *Pipeline) persist(receivedAt time.Time, req *Request, modelPath string, frame *image.NRGBA,
	detections []detector.Detection, elapsed time.Duration) {
	if p.store == nil {
		return
	}

	capture := &datastore.FrameCapture{
		ReceivedAt: receivedAt,
		SourceNode: p.settings.Main.Name,
		ModelPath:  modelPath,
		ClientIP:   req.SourceIP,
		Width:      frame.Rect.Dx(),
		Height:     frame.Rect.Dy(),
		Latency:    elapsed,
	}

	rows := make([]datastore.DetectionRow, 0, len(detections))
	for _, d := range detections {
		rows = append(rows, datastore.DetectionRow{
			ClassID:    d.ClassID,
			Label:      p.className(d.ClassID),
			Confidence: d.Confidence,
			X1:         d.BBox[0],
			Y1:         d.BBox[1],
			X2:         d.BBox[2],
			Y2:         d.BBox[3],
		})
	}

	if err := p.store.Save(capture, rows); err != nil {
		p.logger.Error("Database save failed", "detections", len(rows), "error", err)
	}
}

// publish sends the batch to the MQTT broker when publishing is enabled and
// the client is connected. A disconnected client is skipped quietly, the
// broker catches up on the next batch.
func (p *Pipeline) publish(ctx context.Context, receivedAt time.Time, modelPath string, detections []detector.Detection) {
	if p.publisher == nil || !p.settings.MQTT.Enabled {
		return
	}
	if !p.publisher.IsConnected() {
		p.logger.Debug("Skipping MQTT publish, client not connected")
		return
	}

	message := detectionMessage{
		Source:     p.settings.Main.Name,
		Time:       receivedAt.Format("2006-01-02T15:04:05"),
		Model:      modelPath,
		Detections: detections,
	}
	payload, err := json.Marshal(&message)
	if err != nil {
		p.logger.Error("Failed to marshal detection message", "error", err)
		return
	}

	if err := p.publisher.Publish(ctx, p.settings.MQTT.Topic, string(payload)); err != nil {
		p.logger.Error("MQTT publish failed", "topic", p.settings.MQTT.Topic, "error", err)
	}
}
