// logger.go GORM logging adapter backed by the service logger
package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger implements GORM's logger interface with structured logging.
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel
}

// NewGormLogger creates a new GORM logger instance
func NewGormLogger(slowThreshold time.Duration, logLevel gormlogger.LogLevel) *GormLogger {
	return &GormLogger{
		SlowThreshold: slowThreshold,
		LogLevel:      logLevel,
	}
}

// LogMode implements logger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

// Info implements logger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Info {
		storeLogger().InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Warn implements logger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Warn {
		storeLogger().WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Error implements logger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Error {
		storeLogger().ErrorContext(ctx, "GORM error",
			"msg", fmt.Sprintf(msg, data...))
	}
}

// Trace implements logger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		storeLogger().ErrorContext(ctx, "Database query failed",
			"error", err,
			"sql", sql,
			"duration", elapsed,
			"rows_affected", rows)

	case elapsed > l.SlowThreshold && l.SlowThreshold != 0:
		storeLogger().WarnContext(ctx, "Slow query detected",
			"sql", sql,
			"duration", elapsed,
			"rows_affected", rows,
			"threshold", l.SlowThreshold)

	case l.LogLevel >= gormlogger.Info:
		storeLogger().DebugContext(ctx, "Database query",
			"sql", sql,
			"duration", elapsed,
			"rows_affected", rows)
	}
}
