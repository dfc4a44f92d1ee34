package datastore

import (
	"fmt"

	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	cfg := &settings.Output.MySQL
	missing := ""
	switch {
	case cfg.Host == "":
		missing = "host"
	case cfg.Database == "":
		missing = "database"
	case cfg.Username == "":
		missing = "username"
	}
	if missing != "" {
		return errors.Newf("mysql output enabled but %s is empty", missing).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Context("operation", "validate-mysql-config").
			Build()
	}
	return nil
}

// Open sets up the MySQL database connection
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		store.Settings.Output.MySQL.Username, store.Settings.Output.MySQL.Password,
		store.Settings.Output.MySQL.Host, store.Settings.Output.MySQL.Port,
		store.Settings.Output.MySQL.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		store.logger.Error("Failed to open MySQL database",
			"host", store.Settings.Output.MySQL.Host,
			"port", store.Settings.Output.MySQL.Port,
			"database", store.Settings.Output.MySQL.Database,
			"error", err)
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open-mysql").
			Context("host", store.Settings.Output.MySQL.Host).
			Context("database", store.Settings.Output.MySQL.Database).
			Build()
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "MySQL", store.Settings.Output.MySQL.Database)
}
