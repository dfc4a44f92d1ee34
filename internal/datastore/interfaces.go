// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"log/slog"

	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
	"github.com/kawakawa0804/umi-no-me-web2/internal/logging"
	"gorm.io/gorm"
)

// Interface abstracts the underlying database implementation and defines the
// operations the detection pipeline and the API need.
type Interface interface {
	Open() error
	Save(capture *FrameCapture, detections []DetectionRow) error
	Get(id uint) (FrameCapture, error)
	GetRecent(limit int) ([]FrameCapture, error)
	CountDetections() (int64, error)
	Close() error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB     *gorm.DB // GORM database instance
	logger *slog.Logger
}

// New creates a new store based on the output configuration. Returns nil when
// no database output is enabled; the pipeline treats a nil store as "CSV only".
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			DataStore: DataStore{logger: storeLogger()},
			Settings:  settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			DataStore: DataStore{logger: storeLogger()},
			Settings:  settings,
		}
	default:
		return nil
	}
}

func storeLogger() *slog.Logger {
	logger := logging.ForService("datastore")
	if logger == nil {
		logger = slog.Default()
	}
	return logger
}

// Save stores a capture and its detections as a single transaction.
func (ds *DataStore) Save(capture *FrameCapture, detections []DetectionRow) error {
	if ds.DB == nil {
		return errNotOpen("save")
	}

	tx := ds.DB.Begin()
	if tx.Error != nil {
		return errors.New(tx.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "begin-transaction").
			Build()
	}

	// Roll back the transaction if a panic occurs
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(capture).Error; err != nil {
		tx.Rollback()
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save-capture").
			Build()
	}

	// Assign the capture ID to each detection and save them
	for i := range detections {
		detections[i].CaptureID = capture.ID
		if err := tx.Create(&detections[i]).Error; err != nil {
			tx.Rollback()
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("operation", "save-detection").
				Build()
		}
	}

	if err := tx.Commit().Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "commit-transaction").
			Build()
	}
	return nil
}

// Get retrieves a capture with its detections by ID.
func (ds *DataStore) Get(id uint) (FrameCapture, error) {
	if ds.DB == nil {
		return FrameCapture{}, errNotOpen("get")
	}

	var capture FrameCapture
	if err := ds.DB.Preload("Detections").First(&capture, id).Error; err != nil {
		return FrameCapture{}, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get-capture").
			Context("capture_id", id).
			Build()
	}
	return capture, nil
}

// GetRecent retrieves the most recent captures, newest first.
func (ds *DataStore) GetRecent(limit int) ([]FrameCapture, error) {
	if ds.DB == nil {
		return nil, errNotOpen("get-recent")
	}
	if limit <= 0 {
		return []FrameCapture{}, nil
	}

	var captures []FrameCapture
	err := ds.DB.Preload("Detections").
		Order("received_at DESC, id DESC").
		Limit(limit).
		Find(&captures).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get-recent").
			Build()
	}
	return captures, nil
}

// CountDetections returns the total number of persisted detection rows.
func (ds *DataStore) CountDetections() (int64, error) {
	if ds.DB == nil {
		return 0, errNotOpen("count-detections")
	}

	var count int64
	if err := ds.DB.Model(&DetectionRow{}).Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count-detections").
			Build()
	}
	return count, nil
}

// Close closes the underlying SQL connection. Safe to call on a store that
// never opened.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}

	sqlDB, err := ds.DB.DB()
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "close").
			Build()
	}
	if err := sqlDB.Close(); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "close").
			Build()
	}
	ds.DB = nil
	return nil
}

func errNotOpen(operation string) error {
	return errors.Newf("database connection is not initialized").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
