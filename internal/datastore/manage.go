package datastore

import (
	"time"

	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold defines the duration after which a query is
// considered slow. Batch inserts from a busy camera feed stay well under this.
const DefaultSlowQueryThreshold = 1 * time.Second

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() gormlogger.Interface {
	return NewGormLogger(DefaultSlowQueryThreshold, gormlogger.Warn)
}

// performAutoMigration runs the GORM auto migration for the capture schema.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	migrationStart := time.Now()
	migrationLogger := storeLogger().With("db_type", dbType)

	migrationLogger.Debug("Starting database migration")

	if err := db.AutoMigrate(&FrameCapture{}, &DetectionRow{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto-migration").
			Context("db_type", dbType).
			Build()
	}

	if debug {
		migrationLogger.Debug("Database migration completed",
			"connection", connectionInfo,
			"total_duration", time.Since(migrationStart))
	}

	return nil
}
