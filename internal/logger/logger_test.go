package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherproxy/internal/models"
	"weatherproxy/internal/version"
)

var testVersion = version.Info{Version: "v0.0.1", GitCommit: "abc", InstanceID: "instance-1"}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input     string
		expected  slog.Level
		expectErr bool
	}{
		{input: "debug", expected: slog.LevelDebug},
		{input: "info", expected: slog.LevelInfo},
		{input: "warn", expected: slog.LevelWarn},
		{input: "WARNING", expected: slog.LevelWarn},
		{input: "error", expected: slog.LevelError},
		{input: "Info", expected: slog.LevelInfo},
		{input: "verbose", expectErr: true},
		{input: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestSetup_StreamOutputs(t *testing.T) {
	for _, output := range []string{"stdout", "stderr"} {
		for _, format := range []string{"json", "text"} {
			t.Run(output+"/"+format, func(t *testing.T) {
				logger, closer, err := Setup(models.LoggingConfig{Level: "info", Format: format, Output: output}, testVersion)
				require.NoError(t, err)
				assert.Nil(t, closer)
				assert.NotNil(t, logger)
			})
		}
	}
}

func TestSetup_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "gateway.log")

	logger, closer, err := Setup(models.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}, testVersion)
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Info("forecast served", "city", "London")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "forecast served", line["msg"])
	assert.Equal(t, "London", line["city"])
	assert.Equal(t, "v0.0.1", line["version"])
	assert.Equal(t, "instance-1", line["instance_id"])
}

func TestSetup_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.LoggingConfig
	}{
		{"invalid level", models.LoggingConfig{Level: "loud", Format: "json", Output: "stdout"}},
		{"file without path", models.LoggingConfig{Level: "info", Format: "json", Output: "file"}},
		{"unwritable path", models.LoggingConfig{Level: "info", Format: "json", Output: "file", FilePath: "/nonexistent/dir/x.log"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Setup(tt.cfg, testVersion)
			assert.Error(t, err)
		})
	}
}

func TestHandler_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "text", slog.LevelDebug))

	logger.Info("request", "Authorization", "Bearer top-secret", "api_key", "k", "city", "Oslo")

	out := buf.String()
	assert.NotContains(t, out, "top-secret")
	assert.Contains(t, out, "Authorization="+Redacted)
	assert.Contains(t, out, "api_key="+Redacted)
	assert.Contains(t, out, "city=Oslo")
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "json", slog.LevelWarn))

	logger.Info("should not appear")
	logger.Warn("rate limit exceeded")

	out := buf.String()
	assert.False(t, strings.Contains(out, "should not appear"))
	assert.Contains(t, out, "rate limit exceeded")
}
