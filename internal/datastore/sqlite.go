package datastore

import (
	"path/filepath"

	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Output.SQLite.Path == "" {
		return errors.Newf("sqlite output enabled but path is empty").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Context("operation", "validate-sqlite-config").
			Build()
	}
	return nil
}

// Open sets up the SQLite database connection
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	dir, fileName := filepath.Split(store.Settings.Output.SQLite.Path)
	basePath := conf.GetBasePath(dir)
	absoluteFilePath := filepath.Join(basePath, fileName)

	db, err := gorm.Open(sqlite.Open(absoluteFilePath), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		store.logger.Error("Failed to open SQLite database",
			"path", absoluteFilePath,
			"error", err)
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open-sqlite").
			Context("path", absoluteFilePath).
			Build()
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "SQLite", absoluteFilePath)
}
