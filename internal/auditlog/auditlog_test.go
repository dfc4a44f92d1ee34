package auditlog

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawakawa0804/umi-no-me-web2/internal/detector"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "logs", "detections.csv"))
	require.NoError(t, err)
	store.now = func() time.Time {
		return time.Date(2025, 8, 24, 12, 30, 45, 0, time.Local)
	}
	return store
}

func sampleDetections() []detector.Detection {
	return []detector.Detection{
		{ClassID: 0, Confidence: 0.91, BBox: [4]float64{10.5, 20.25, 110.5, 220.75}},
		{ClassID: 2, Confidence: 0.5, BBox: [4]float64{0, 0, 48, 64}},
	}
}

func TestNewCreatesParentDirectory(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	store, err := New(filepath.Join(base, "deep", "nested", "detections.csv"))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(base, "deep", "nested"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.False(t, store.Exists(), "file itself appears only on first append")
}

func TestAppendWritesRowsWithSharedTimestamp(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.Append(sampleDetections()))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// No header line on the data file
	assert.Equal(t, "2025-08-24T12:30:45", rows[0][0])
	assert.Equal(t, rows[0][0], rows[1][0], "one batch shares one timestamp")

	assert.Equal(t, []string{"2025-08-24T12:30:45", "0", "0.91", "10.5", "20.25", "110.5", "220.75"}, rows[0])
	assert.Equal(t, []string{"2025-08-24T12:30:45", "2", "0.5", "0", "0", "48", "64"}, rows[1])
}

func TestAppendEmptyBatchWritesNothing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.Append(nil))
	require.NoError(t, store.Append([]detector.Detection{}))

	assert.False(t, store.Exists(), "empty batches must not create the file")
}

func TestAppendAccumulatesAcrossBatches(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.Append(sampleDetections()))
	require.NoError(t, store.Append(sampleDetections()[:1]))

	rows, err := store.Tail(100)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestTail(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append([]detector.Detection{
			{ClassID: i, Confidence: 0.5, BBox: [4]float64{1, 2, 3, 4}},
		}))
	}

	t.Run("fewer rows than requested", func(t *testing.T) {
		rows, err := store.Tail(100)
		require.NoError(t, err)
		assert.Len(t, rows, 5)
	})

	t.Run("last n in order", func(t *testing.T) {
		rows, err := store.Tail(2)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "3", rows[0][1])
		assert.Equal(t, "4", rows[1][1])
	})

	t.Run("zero and negative", func(t *testing.T) {
		rows, err := store.Tail(0)
		require.NoError(t, err)
		assert.Empty(t, rows)

		rows, err = store.Tail(-1)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestTailMissingFile(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	rows, err := store.Tail(200)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExportMissingFileSynthesizesHeader(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	var buf bytes.Buffer
	require.NoError(t, store.Export(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Header(), rows[0])
}

func TestExportStreamsRawFile(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.Append(sampleDetections()))

	var buf bytes.Buffer
	require.NoError(t, store.Export(&buf))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, raw, buf.Bytes(), "export must not rewrite existing rows")
	assert.False(t, strings.HasPrefix(buf.String(), "time,"), "data file carries no header")
}

func TestAppendConcurrentBatches(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	const writers = 8
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append([]detector.Detection{
				{ClassID: i, Confidence: 0.6, BBox: [4]float64{0, 0, 10, 10}},
			}))
		}(i)
	}
	wg.Wait()

	rows, err := store.Tail(100)
	require.NoError(t, err)
	assert.Len(t, rows, writers, "every batch lands exactly once")
}

func TestHeaderCopyIsIsolated(t *testing.T) {
	t.Parallel()

	h := Header()
	h[0] = "mutated"
	assert.Equal(t, "time", Header()[0])
}
