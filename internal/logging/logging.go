// Package logging provides the application-wide structured logging setup:
// a JSON logger for machine consumption, a text logger for humans, and
// rotating per-service file loggers.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"gopkg.in/natefinch/lumberjack.v2"
)

var structuredLogger *slog.Logger
var humanReadableLogger *slog.Logger

// Custom levels beyond the slog defaults.
const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

// replaceLevelNames renames the custom levels in handler output so TRACE and
// FATAL appear by name instead of DEBUG-4 / ERROR+4.
func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		label, ok := levelNames[level]
		if !ok {
			label = level.String()
		}
		a.Value = slog.StringValue(label)
	}
	return a
}

func newHandlers(structuredOut, humanOut io.Writer, structuredLevel, humanLevel slog.Level) (*slog.Logger, *slog.Logger) {
	structured := slog.New(slog.NewJSONHandler(structuredOut, &slog.HandlerOptions{
		Level:       structuredLevel,
		ReplaceAttr: replaceLevelNames,
	}))
	human := slog.New(slog.NewTextHandler(humanOut, &slog.HandlerOptions{
		Level:       humanLevel,
		ReplaceAttr: replaceLevelNames,
	}))
	return structured, human
}

// Init configures the global loggers: JSON to stdout for structured logs,
// text to stderr for human-readable logs. The structured logger becomes the
// slog default.
func Init() {
	structuredLogger, humanReadableLogger = newHandlers(os.Stdout, os.Stderr, slog.LevelDebug, slog.LevelInfo)
	slog.SetDefault(structuredLogger)
}

// SetLevel rebuilds both global loggers with the given minimum level.
func SetLevel(level slog.Level) {
	structuredLogger, humanReadableLogger = newHandlers(os.Stdout, os.Stderr, level, level)
	slog.SetDefault(structuredLogger)
}

// SetOutput redirects both global loggers, preserving their current levels.
// Intended for tests.
func SetOutput(structuredOut, humanOut io.Writer) {
	structuredLevel := slog.LevelDebug
	if structuredLogger != nil {
		if leveler, ok := structuredLogger.Handler().(interface{ Level() slog.Level }); ok {
			structuredLevel = leveler.Level()
		}
	}
	humanLevel := slog.LevelInfo
	if humanReadableLogger != nil {
		if leveler, ok := humanReadableLogger.Handler().(interface{ Level() slog.Level }); ok {
			humanLevel = leveler.Level()
		}
	}
	structuredLogger, humanReadableLogger = newHandlers(structuredOut, humanOut, structuredLevel, humanLevel)
	slog.SetDefault(structuredLogger)
}

// Structured returns the global structured (JSON) logger, or nil before Init.
func Structured() *slog.Logger {
	return structuredLogger
}

// HumanReadable returns the global human-readable (text) logger, or nil before Init.
func HumanReadable() *slog.Logger {
	return humanReadableLogger
}

// ForService returns a child of the structured logger tagged with the
// 'service' attribute, or nil before Init.
func ForService(serviceName string) *slog.Logger {
	if structuredLogger == nil {
		return nil
	}
	return structuredLogger.With("service", serviceName)
}

// Debug logs a debug message using the default slog logger.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs an info message using the default slog logger.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs a warning message using the default slog logger.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs an error message using the default slog logger.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Fatal logs at the custom Fatal level and exits the process.
func Fatal(msg string, args ...any) {
	slog.Log(context.TODO(), LevelFatal, msg, args...)
	os.Exit(1)
}

// Trace logs at the custom Trace level.
func Trace(msg string, args ...any) {
	slog.Log(context.TODO(), LevelTrace, msg, args...)
}

// NewFileLogger returns a JSON slog.Logger writing to filePath through a
// rotating lumberjack writer, tagged with the service attribute. Rotation
// behavior follows the main log settings. The returned func closes the
// underlying writer.
func NewFileLogger(filePath, serviceName string, level slog.Level) (*slog.Logger, func() error, error) {
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	logConf := conf.Setting().Log

	logWriter := &lumberjack.Logger{
		Filename: filePath,
		Compress: false,
	}

	maxSizeMB := 100
	maxBackups := 3
	maxAge := 28 // days

	if configMaxSizeMB := int(logConf.MaxSize / (1024 * 1024)); configMaxSizeMB > 0 {
		maxSizeMB = configMaxSizeMB
	}

	switch logConf.Rotation {
	case conf.RotationDaily:
		maxAge = 1
		maxBackups = 30
	case conf.RotationWeekly:
		maxAge = 7
		maxBackups = 4
	case conf.RotationSize:
		// size-based rotation uses maxSizeMB as derived above
	default:
		slog.Warn("Unknown log rotation type in config, using size-based defaults", "configuredType", logConf.Rotation)
	}

	logWriter.MaxSize = maxSizeMB
	logWriter.MaxBackups = maxBackups
	logWriter.MaxAge = maxAge

	fileHandler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})

	logger := slog.New(fileHandler).With("service", serviceName)

	closeFunc := func() error {
		return logWriter.Close()
	}

	return logger, closeFunc, nil
}
