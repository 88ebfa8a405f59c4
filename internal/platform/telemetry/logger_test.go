package telemetry_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thinkcrm/plugincore/internal/platform/telemetry"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := telemetry.NewLogger("info", "json", &buf)

	logger.Info("test message", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, telemetry.Service, entry["service"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	telemetry.NewLogger("debug", "text", &buf).Debug("hello")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "service=plugincore")
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := telemetry.NewLogger("warn", "json", &buf)

	logger.Info("should not appear")

	assert.Empty(t, buf.String())
}

func TestForHandler(t *testing.T) {
	var buf bytes.Buffer
	telemetry.ForHandler(telemetry.NewLogger("info", "json", &buf), "setbyandon").Info("x")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "setbyandon", entry["handler"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, telemetry.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, telemetry.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, telemetry.ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, telemetry.ParseLevel("chatty"))
}
