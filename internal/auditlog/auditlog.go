// auditlog.go: Package auditlog keeps the append-only CSV record of every
// detection the service returns. The file is the operational ground truth
// for "what did the camera see and when", it never rotates and rows are
// never rewritten.
package auditlog

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/kawakawa0804/umi-no-me-web2/internal/detector"
	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
	"github.com/kawakawa0804/umi-no-me-web2/internal/logging"
)

// timestampLayout is second precision local time, matching the rows written
// by earlier deployments so one file stays parseable across upgrades.
const timestampLayout = "2006-01-02T15:04:05"

var header = []string{"time", "class_id", "confidence", "x1", "y1", "x2", "y2"}

// Header returns the column names of the audit CSV.
func Header() []string {
	out := make([]string, len(header))
	copy(out, header)
	return out
}

// Store is the append-only audit CSV. All writes go through one mutex, the
// file itself carries no header so appends across restarts stay seamless.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger

	// now is swapped out in tests
	now func() time.Time
}

// New creates a store writing to path, creating parent directories as
// needed. The file itself is created on first append.
func New(path string) (*Store, error) {
	logger := logging.ForService("auditlog")
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(err).
				Component("auditlog").
				Category(errors.CategoryFileIO).
				Context("operation", "mkdir").
				Context("dir", dir).
				Build()
		}
	}

	return &Store{
		path:   path,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Path returns the CSV file location.
func (s *Store) Path() string {
	return s.path
}

// Append writes one row per detection, all sharing a single batch
// timestamp. An empty batch writes nothing.
func (s *Store) Append(detections []detector.Detection) error {
	if len(detections) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G304: path comes from application settings
	if err != nil {
		return errors.New(err).
			Component("auditlog").
			Category(errors.CategoryFileIO).
			Context("operation", "open-append").
			Build()
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.Warn("Failed to close audit file", "error", err)
		}
	}()

	timestamp := s.now().Format(timestampLayout)

	w := csv.NewWriter(file)
	for _, d := range detections {
		row := []string{
			timestamp,
			strconv.Itoa(d.ClassID),
			formatFloat(d.Confidence),
			formatFloat(d.BBox[0]),
			formatFloat(d.BBox[1]),
			formatFloat(d.BBox[2]),
			formatFloat(d.BBox[3]),
		}
		if err := w.Write(row); err != nil {
			return errors.New(err).
				Component("auditlog").
				Category(errors.CategoryFileIO).
				Context("operation", "write-row").
				Build()
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.New(err).
			Component("auditlog").
			Category(errors.CategoryFileIO).
			Context("operation", "flush").
			Build()
	}

	return nil
}

// Tail returns the last n rows in file order. A missing file is an empty
// audit trail, not an error.
func (s *Store) Tail(n int) ([][]string, error) {
	if n <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path) //nolint:gosec // G304: path comes from application settings
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(err).
			Component("auditlog").
			Category(errors.CategoryFileIO).
			Context("operation", "open-read").
			Build()
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.Warn("Failed to close audit file", "error", err)
		}
	}()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // tolerate rows from older schema revisions

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.New(err).
			Component("auditlog").
			Category(errors.CategoryFileIO).
			Context("operation", "read").
			Build()
	}

	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	return rows, nil
}

// Export streams the raw CSV to w. When no file exists yet a header-only
// document is written instead so downloads always yield a valid CSV.
func (s *Store) Export(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path) //nolint:gosec // G304: path comes from application settings
	if err != nil {
		if os.IsNotExist(err) {
			cw := csv.NewWriter(w)
			if err := cw.Write(header); err != nil {
				return errors.New(err).
					Component("auditlog").
					Category(errors.CategoryFileIO).
					Context("operation", "write-header").
					Build()
			}
			cw.Flush()
			return cw.Error()
		}
		return errors.New(err).
			Component("auditlog").
			Category(errors.CategoryFileIO).
			Context("operation", "open-export").
			Build()
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.Warn("Failed to close audit file", "error", err)
		}
	}()

	if _, err := io.Copy(w, file); err != nil {
		return errors.New(err).
			Component("auditlog").
			Category(errors.CategoryFileIO).
			Context("operation", "copy").
			Build()
	}
	return nil
}

// Exists reports whether the audit file has been created yet.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// formatFloat renders values the way the audit rows have always carried
// them, shortest decimal form that round-trips.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
