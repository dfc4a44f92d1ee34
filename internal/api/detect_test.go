package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawakawa0804/umi-no-me-web2/internal/detector"
	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
)

func encodeTestFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 24))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, field string, data []byte, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if field != "" {
		part, err := writer.CreateFormFile(field, "frame.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range values {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func postDetect(env *testEnv, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func TestDetectMultipartImage(t *testing.T) {
	env := setupTestEnvironment(t)

	body, contentType := multipartBody(t, "image", encodeTestFrame(t), nil)
	rec := postDetect(env, "/detect", body, contentType)

	require.Equal(t, http.StatusOK, rec.Code)

	var detections []detector.Detection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detections))
	require.Len(t, detections, 2)
	assert.Equal(t, 0, detections[0].ClassID)
	assert.InDelta(t, 0.91, detections[0].Confidence, 1e-9)
	assert.Equal(t, [4]float64{10, 20, 110, 220}, detections[0].BBox)
}

func TestDetectAliasRoute(t *testing.T) {
	env := setupTestEnvironment(t)

	body, contentType := multipartBody(t, "image", encodeTestFrame(t), nil)
	rec := postDetect(env, "/api/v1/detect", body, contentType)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDetectFileField(t *testing.T) {
	env := setupTestEnvironment(t)

	body, contentType := multipartBody(t, "file", encodeTestFrame(t), nil)
	rec := postDetect(env, "/detect", body, contentType)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDetectJSONFrame(t *testing.T) {
	env := setupTestEnvironment(t)

	encoded := base64.StdEncoding.EncodeToString(encodeTestFrame(t))
	payload := fmt.Sprintf(`{"frame": "data:image/png;base64,%s"}`, encoded)

	rec := postDetect(env, "/detect", bytes.NewBufferString(payload), echo.MIMEApplicationJSON)

	require.Equal(t, http.StatusOK, rec.Code)

	var detections []detector.Detection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detections))
	assert.Len(t, detections, 2)
}

func TestDetectJSONFrameWithoutMarker(t *testing.T) {
	env := setupTestEnvironment(t)

	encoded := base64.StdEncoding.EncodeToString(encodeTestFrame(t))
	payload := fmt.Sprintf(`{"frame": %q}`, encoded)

	rec := postDetect(env, "/detect", bytes.NewBufferString(payload), echo.MIMEApplicationJSON)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "No image provided"}`, rec.Body.String())
}

func TestDetectNoImage(t *testing.T) {
	env := setupTestEnvironment(t)

	body, contentType := multipartBody(t, "", nil, map[string]string{"note": "empty"})
	rec := postDetect(env, "/detect", body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "No image provided"}`, rec.Body.String())
	assert.Equal(t, 0, env.models.predictor.calls)
}

func TestDetectUndecodableImage(t *testing.T) {
	env := setupTestEnvironment(t)

	body, contentType := multipartBody(t, "image", []byte("not an image"), nil)
	rec := postDetect(env, "/detect", body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "Failed to decode image"}`, rec.Body.String())
}

func TestDetectImageFieldWinsOverFile(t *testing.T) {
	env := setupTestEnvironment(t)

	// valid frame under "image", garbage under "file"; the request must
	// succeed because "image" is read first
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "frame.png")
	require.NoError(t, err)
	_, err = part.Write(encodeTestFrame(t))
	require.NoError(t, err)
	part, err = writer.CreateFormFile("file", "garbage.bin")
	require.NoError(t, err)
	_, err = part.Write([]byte("garbage"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	rec := postDetect(env, "/detect", &buf, writer.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDetectBusy(t *testing.T) {
	env := setupTestEnvironment(t)
	require.True(t, env.admission.TryAcquire())
	defer env.admission.Release()

	body, contentType := multipartBody(t, "image", encodeTestFrame(t), nil)
	rec := postDetect(env, "/detect", body, contentType)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error": "busy"}`, rec.Body.String())
}

func TestDetectModelUnavailable(t *testing.T) {
	env := setupTestEnvironment(t, withLoadError(errors.NewStd("artifact missing")))

	body, contentType := multipartBody(t, "image", encodeTestFrame(t), nil)
	rec := postDetect(env, "/detect", body, contentType)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error": "Model not available"}`, rec.Body.String())
}

func TestDetectModelUnavailableBeatsMissingImage(t *testing.T) {
	env := setupTestEnvironment(t, withLoadError(errors.NewStd("artifact missing")))

	body, contentType := multipartBody(t, "", nil, nil)
	rec := postDetect(env, "/detect", body, contentType)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error": "Model not available"}`, rec.Body.String())
}

func TestDetectInferenceFailure(t *testing.T) {
	inferenceErr := errors.Newf("interpreter invoke failed").
		Component("detector").
		Category(errors.CategoryInference).
		Build()
	env := setupTestEnvironment(t, withPredictor(&stubPredictor{err: inferenceErr}))

	body, contentType := multipartBody(t, "image", encodeTestFrame(t), nil)
	rec := postDetect(env, "/detect", body, contentType)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp["error"], "inference failed: "), "got %q", resp["error"])
}

func TestDetectParseFailure(t *testing.T) {
	parseErr := errors.Newf("unexpected head shape").
		Component("detector").
		Category(errors.CategoryExtraction).
		Build()
	env := setupTestEnvironment(t, withPredictor(&stubPredictor{err: parseErr}))

	body, contentType := multipartBody(t, "image", encodeTestFrame(t), nil)
	rec := postDetect(env, "/detect", body, contentType)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp["error"], "parse failed: "), "got %q", resp["error"])
}

func TestDetectEmptyBatch(t *testing.T) {
	env := setupTestEnvironment(t, withPredictor(&stubPredictor{}))

	body, contentType := multipartBody(t, "image", encodeTestFrame(t), nil)
	rec := postDetect(env, "/detect", body, contentType)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestDetectModelAliasFromQuery(t *testing.T) {
	env := setupTestEnvironment(t)

	body, contentType := multipartBody(t, "image", encodeTestFrame(t), nil)
	rec := postDetect(env, "/detect?model=nano", body, contentType)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "models/nano.tflite", env.models.lastResolved())
}

func TestDetectModelAliasFromForm(t *testing.T) {
	env := setupTestEnvironment(t)

	body, contentType := multipartBody(t, "image", encodeTestFrame(t), map[string]string{"model": "nano"})
	rec := postDetect(env, "/detect", body, contentType)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "models/nano.tflite", env.models.lastResolved())
}

func TestDetectSecondRequestRejectedWhileBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	env := setupTestEnvironment(t, withPredictor(&stubPredictor{
		detections: sampleDetections(),
		entered:    entered,
		release:    release,
	}))

	frame := encodeTestFrame(t)
	firstBody, firstContentType := multipartBody(t, "image", frame, nil)
	firstDone := make(chan int, 1)
	go func() {
		rec := postDetect(env, "/detect", firstBody, firstContentType)
		firstDone <- rec.Code
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never reached the predictor")
	}

	body, contentType := multipartBody(t, "image", frame, nil)
	rec := postDetect(env, "/detect", body, contentType)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error": "busy"}`, rec.Body.String())

	close(release)
	assert.Equal(t, http.StatusOK, <-firstDone)
}
