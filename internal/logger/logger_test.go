package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notemesh/internal/config"
)

func testConfig(level, format string) config.Config {
	return config.Config{
		AppPort:     8080,
		LogLevel:    level,
		LogFormat:   format,
		MongoURI:    "mongodb://localhost:27017",
		MongoDBName: "test",
		JWTSecret:   "secret",
	}
}

func TestLogger_FormatSelection(t *testing.T) {
	tests := []struct {
		name       string
		logFormat  string
		expectJSON bool
	}{
		{"json format", "json", true},
		{"text format", "text", false},
		{"default format (empty)", "", true},
		{"unknown format defaults to json", "unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			opts := &slog.HandlerOptions{Level: slog.LevelInfo}

			var handler slog.Handler
			if tt.logFormat == "text" {
				handler = slog.NewTextHandler(&buf, opts)
			} else {
				handler = slog.NewJSONHandler(&buf, opts)
			}

			testLogger := slog.New(handler)
			testLogger.Info("test message", "key", "value")

			output := buf.String()
			if tt.expectJSON {
				assert.Contains(t, output, `"msg":"test message"`)
				assert.Contains(t, output, `"key":"value"`)
			} else {
				assert.Contains(t, output, "test message")
				assert.Contains(t, output, "key=value")
				assert.NotContains(t, output, `"msg":`)
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	testLogger := slog.New(slog.NewJSONHandler(&buf, opts))

	testLogger.Debug("debug message")
	assert.Empty(t, buf.String(), "debug message should be suppressed when level is info")

	buf.Reset()
	testLogger.Info("info message")
	assert.Contains(t, buf.String(), "info message")
}

func TestLogger_Idempotency(t *testing.T) {
	log1, err1 := Init(testConfig("info", "json"))
	require.NoError(t, err1)
	require.NotNil(t, log1)

	// A second Init with a different config must not replace the instance.
	log2, err2 := Init(testConfig("debug", "text"))
	require.NoError(t, err2)
	require.NotNil(t, log2)

	assert.Same(t, log1, log2, "subsequent Init calls should return the same logger instance")
	assert.Same(t, log1, L())
}
