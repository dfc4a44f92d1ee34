package telemetry

import (
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
)

func TestInitDisabledIsNoOp(t *testing.T) {
	errors.SetTelemetryReporter(nil)

	settings := &conf.Settings{}
	settings.Telemetry.Enabled = false
	settings.Telemetry.Dsn = "https://public@sentry.example.com/1"

	require.NoError(t, Init(settings))
	assert.Nil(t, errors.GetTelemetryReporter(), "disabled telemetry must not attach a reporter")
}

func TestInitEnabledRequiresDSN(t *testing.T) {
	errors.SetTelemetryReporter(nil)

	settings := &conf.Settings{}
	settings.Telemetry.Enabled = true

	err := Init(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestBeforeSendHookScrubsIdentifiers(t *testing.T) {
	t.Parallel()

	event := sentry.NewEvent()
	event.ServerName = "edge-host-01"
	event.Request = &sentry.Request{URL: "http://edge-host-01/detect"}
	event.User = sentry.User{
		IPAddress: "203.0.113.9",
		Email:     "ops@example.com",
		Username:  "operator",
		ID:        "install-1234",
	}

	scrubbed := beforeSendHook(event, nil)
	require.NotNil(t, scrubbed)

	assert.Empty(t, scrubbed.ServerName)
	assert.Nil(t, scrubbed.Request)
	assert.Empty(t, scrubbed.User.IPAddress)
	assert.Empty(t, scrubbed.User.Email)
	assert.Empty(t, scrubbed.User.Username)
	assert.Equal(t, "install-1234", scrubbed.User.ID, "anonymous install ID survives scrubbing")
}

func TestFlushWithoutInitDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Flush(10 * time.Millisecond)
	})
}
