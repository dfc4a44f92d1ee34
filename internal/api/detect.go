// internal/api/detect.go detection endpoint handlers
package api

import (
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/labstack/echo/v4"

	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
	"github.com/kawakawa0804/umi-no-me-web2/internal/pipeline"
)

// Detect handles POST /detect and its /api/v1 alias. The frame arrives as a
// multipart upload under "image" or "file", or as JSON {"frame": <data URL>}.
// An optional "model" parameter selects a model alias.
//
// Response bodies on this route are fixed, deployed camera firmware parses
// them verbatim.
func (c *Controller) Detect(ctx echo.Context) error {
	start := time.Now()

	imageData := c.readImageBytes(ctx)
	modelAlias := c.modelAlias(ctx)

	result, err := c.Pipeline.Process(ctx.Request().Context(), &pipeline.Request{
		ImageData:  imageData,
		ModelAlias: modelAlias,
		SourceIP:   ctx.RealIP(),
	})
	if err != nil {
		return c.detectError(ctx, err)
	}

	c.metrics.HTTP.RecordHandlerOperation("detect", "process", "success")
	c.metrics.HTTP.RecordHandlerOperationDuration("detect", "process", time.Since(start).Seconds())
	c.logAPIRequest(ctx, slog.LevelInfo, "Frame processed",
		"model", result.ModelPath,
		"detections", len(result.Detections),
		"elapsed_ms", result.Elapsed.Milliseconds())

	return ctx.JSON(http.StatusOK, result.Detections)
}

// detectError maps pipeline failures onto the legacy response table.
func (c *Controller) detectError(ctx echo.Context, err error) error {
	var status int
	var body map[string]string

	switch {
	case errors.Is(err, pipeline.ErrBusy):
		status = http.StatusTooManyRequests
		body = map[string]string{"error": "busy"}
	case errors.Is(err, pipeline.ErrModelUnavailable):
		status = http.StatusServiceUnavailable
		body = map[string]string{"error": "Model not available"}
	case errors.Is(err, pipeline.ErrNoImage):
		status = http.StatusBadRequest
		body = map[string]string{"error": "No image provided"}
	case errors.IsCategory(err, errors.CategoryImageDecode):
		status = http.StatusBadRequest
		body = map[string]string{"error": "Failed to decode image"}
	case errors.IsCategory(err, errors.CategoryExtraction):
		status = http.StatusInternalServerError
		body = map[string]string{"error": fmt.Sprintf("parse failed: %v", err)}
	default:
		status = http.StatusInternalServerError
		body = map[string]string{"error": fmt.Sprintf("inference failed: %v", err)}
	}

	c.metrics.HTTP.RecordHandlerOperationError("detect", "process", errorType(status))
	if status >= http.StatusInternalServerError {
		c.logAPIRequest(ctx, slog.LevelError, "Detection failed", "status", status, "error", err)
	} else {
		c.logAPIRequest(ctx, slog.LevelDebug, "Detection rejected", "status", status, "error", err)
	}

	return ctx.JSON(status, body)
}

// errorType buckets a status code for the handler error counter.
func errorType(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return "busy"
	case http.StatusServiceUnavailable:
		return "model_unavailable"
	case http.StatusBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// readImageBytes extracts the encoded frame from the request. Multipart
// fields win over the JSON body, "image" wins over "file". A present but
// unreadable upload yields empty bytes rather than falling through, matching
// how clients expect a broken upload to be answered.
func (c *Controller) readImageBytes(ctx echo.Context) []byte {
	for _, field := range []string{"image", "file"} {
		if data, ok := c.formFileBytes(ctx, field); ok {
			return data
		}
	}
	return c.frameFromJSON(ctx)
}

// formFileBytes reads one multipart file field. The second return reports
// whether the field was present at all.
func (c *Controller) formFileBytes(ctx echo.Context, field string) ([]byte, bool) {
	header, err := ctx.FormFile(field)
	if err != nil {
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		c.logAPIRequest(ctx, slog.LevelWarn, "Failed to open uploaded file", "field", field, "error", err)
		return nil, true
	}
	defer func() {
		if err := file.Close(); err != nil {
			c.logAPIRequest(ctx, slog.LevelWarn, "Failed to close uploaded file", "field", field, "error", err)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		c.logAPIRequest(ctx, slog.LevelWarn, "Failed to read uploaded file", "field", field, "error", err)
		return nil, true
	}
	return data, true
}

// frameFromJSON pulls the frame out of a JSON body of the form
// {"frame": "data:image/jpeg;base64,..."}. Everything before the first
// "base64," marker is ignored; a body without the marker carries no frame.
func (c *Controller) frameFromJSON(ctx echo.Context) []byte {
	contentType := ctx.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEApplicationJSON) {
		return nil
	}

	obj, err := jason.NewObjectFromReader(ctx.Request().Body)
	if err != nil {
		return nil
	}
	frame, err := obj.GetString("frame")
	if err != nil {
		return nil
	}

	idx := strings.Index(frame, "base64,")
	if idx < 0 {
		return nil
	}
	encoded := frame[idx+len("base64,"):]

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// data URLs from browser canvases sometimes arrive without padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil
		}
	}
	return data
}

// modelAlias reads the optional model selector from the query string or the
// form body.
func (c *Controller) modelAlias(ctx echo.Context) string {
	if alias := ctx.QueryParam("model"); alias != "" {
		return alias
	}
	return ctx.FormValue("model")
}
