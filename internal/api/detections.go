// internal/api/detections.go persisted detection queries
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kawakawa0804/umi-no-me-web2/internal/datastore"
)

// recentCacheTTL keeps repeated dashboard polls off the database without
// making the view noticeably stale.
const recentCacheTTL = 10 * time.Second

// maxRecentLimit caps how many captures one query may return.
const maxRecentLimit = 100

// CaptureResponse is one persisted frame with its detections.
type CaptureResponse struct {
	ID         uint               `json:"id"`
	Time       string             `json:"time"`
	SourceNode string             `json:"source_node"`
	Model      string             `json:"model"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	LatencyMS  int64              `json:"latency_ms"`
	Detections []DetectionSummary `json:"detections"`
}

// DetectionSummary is one detected object within a capture.
type DetectionSummary struct {
	ClassID    int        `json:"class_id"`
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

// RecentDetections handles GET /api/v1/detections/recent. Requires the
// database output to be enabled, the audit CSV endpoints cover the rest.
func (c *Controller) RecentDetections(ctx echo.Context) error {
	if c.DS == nil {
		return c.HandleError(ctx, nil, "Database output is not enabled", http.StatusNotImplemented)
	}

	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	if limit <= 0 {
		limit = 10
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	cacheKey := fmt.Sprintf("recent:%d", limit)
	if cached, found := c.queryCache.Get(cacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	captures, err := c.DS.GetRecent(limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to query recent detections", http.StatusInternalServerError)
	}

	response := make([]CaptureResponse, 0, len(captures))
	for i := range captures {
		response = append(response, captureResponse(&captures[i]))
	}

	c.queryCache.Set(cacheKey, response, recentCacheTTL)
	return ctx.JSON(http.StatusOK, response)
}

func captureResponse(capture *datastore.FrameCapture) CaptureResponse {
	detections := make([]DetectionSummary, 0, len(capture.Detections))
	for _, d := range capture.Detections {
		detections = append(detections, DetectionSummary{
			ClassID:    d.ClassID,
			Label:      d.Label,
			Confidence: d.Confidence,
			BBox:       [4]float64{d.X1, d.Y1, d.X2, d.Y2},
		})
	}

	return CaptureResponse{
		ID:         capture.ID,
		Time:       capture.ReceivedAt.Format(time.RFC3339),
		SourceNode: capture.SourceNode,
		Model:      capture.ModelPath,
		Width:      capture.Width,
		Height:     capture.Height,
		LatencyMS:  capture.Latency.Milliseconds(),
		Detections: detections,
	}
}
