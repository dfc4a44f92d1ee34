package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawakawa0804/umi-no-me-web2/internal/datastore"
	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
)

func sampleCaptures() []datastore.FrameCapture {
	received := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	return []datastore.FrameCapture{
		{
			ID:         2,
			ReceivedAt: received,
			SourceNode: "pier-cam-1",
			ModelPath:  "models/best.tflite",
			ClientIP:   "192.0.2.7",
			Width:      480,
			Height:     360,
			Latency:    420 * time.Millisecond,
			Detections: []datastore.DetectionRow{
				{ClassID: 0, Label: "buoy", Confidence: 0.91, X1: 10, Y1: 20, X2: 110, Y2: 220},
			},
		},
	}
}

func TestRecentDetectionsDisabled(t *testing.T) {
	env := setupTestEnvironment(t)

	var resp ErrorResponse
	rec := getJSON(t, env, "/api/v1/detections/recent", nil)

	require.Equal(t, http.StatusNotImplemented, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Database output is not enabled", resp.Message)
	assert.Len(t, resp.CorrelationID, 8)
}

func TestRecentDetections(t *testing.T) {
	ds := new(MockDataStore)
	ds.On("GetRecent", 10).Return(sampleCaptures(), nil)
	env := setupTestEnvironment(t, withDatastore(ds))

	var resp []CaptureResponse
	rec := getJSON(t, env, "/api/v1/detections/recent", &resp)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp, 1)

	capture := resp[0]
	assert.Equal(t, uint(2), capture.ID)
	assert.Equal(t, "pier-cam-1", capture.SourceNode)
	assert.Equal(t, "models/best.tflite", capture.Model)
	assert.Equal(t, 480, capture.Width)
	assert.Equal(t, int64(420), capture.LatencyMS)
	require.Len(t, capture.Detections, 1)
	assert.Equal(t, "buoy", capture.Detections[0].Label)
	assert.Equal(t, [4]float64{10, 20, 110, 220}, capture.Detections[0].BBox)

	ds.AssertExpectations(t)
}

func TestRecentDetectionsCached(t *testing.T) {
	ds := new(MockDataStore)
	ds.On("GetRecent", 10).Return(sampleCaptures(), nil).Once()
	env := setupTestEnvironment(t, withDatastore(ds))

	for i := 0; i < 2; i++ {
		rec := getJSON(t, env, "/api/v1/detections/recent", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	ds.AssertNumberOfCalls(t, "GetRecent", 1)
}

func TestRecentDetectionsLimitClamped(t *testing.T) {
	ds := new(MockDataStore)
	ds.On("GetRecent", maxRecentLimit).Return([]datastore.FrameCapture{}, nil)
	env := setupTestEnvironment(t, withDatastore(ds))

	rec := getJSON(t, env, "/api/v1/detections/recent?limit=5000", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	ds.AssertExpectations(t)
}

func TestRecentDetectionsQueryError(t *testing.T) {
	ds := new(MockDataStore)
	ds.On("GetRecent", 10).Return([]datastore.FrameCapture{}, errors.NewStd("query failed"))
	env := setupTestEnvironment(t, withDatastore(ds))

	rec := getJSON(t, env, "/api/v1/detections/recent", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
