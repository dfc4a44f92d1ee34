// Package telemetry provides opt-in error reporting via Sentry.
package telemetry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
	"github.com/kawakawa0804/umi-no-me-web2/internal/logging"
)

var telemetryLogger *slog.Logger

func serviceLogger() *slog.Logger {
	if telemetryLogger != nil {
		return telemetryLogger
	}
	logger := logging.ForService("telemetry")
	if logger == nil {
		logger = slog.Default()
	}
	telemetryLogger = logger
	return telemetryLogger
}

// Init configures Sentry error reporting when telemetry is enabled in the
// settings. Reporting is strictly opt-in; with telemetry disabled the error
// package's reporter stays unset and enhanced errors are never transmitted.
func Init(settings *conf.Settings) error {
	if !settings.Telemetry.Enabled {
		serviceLogger().Debug("Telemetry disabled, skipping Sentry initialization")
		return nil
	}

	if settings.Telemetry.Dsn == "" {
		return errors.Newf("telemetry enabled but DSN is empty").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry-init").
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        settings.Telemetry.Dsn,
		SampleRate: 1.0,   // Capture all errors by default
		Debug:      false, // Keep debug off for production

		// Privacy-compliant settings
		AttachStacktrace: false, // Don't attach stack traces by default
		Environment:      "production",
		ServerName:       "", // Explicitly clear server name to prevent hostname leakage

		Release: fmt.Sprintf("umi-no-me@%s", settings.Version),

		// BeforeSend filters request and host identifiers from every event
		BeforeSend: beforeSendHook,
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry-init").
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	serviceLogger().Info("Sentry error reporting enabled")

	return nil
}

// beforeSendHook strips identifying fields before an event leaves the process.
func beforeSendHook(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.ServerName = ""
	event.Request = nil
	event.User.IPAddress = ""
	event.User.Email = ""
	event.User.Username = ""
	return event
}

// Flush drains pending events before shutdown.
func Flush(timeout time.Duration) {
	if !sentry.Flush(timeout) {
		serviceLogger().Warn("Sentry flush timed out, some events may be lost")
	}
}
