package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/config"
	apperrors "salespulse/internal/errors"
)

func readJSONLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line %q", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if logger != GetLogger() {
		t.Fatal("global logger not set")
	}

	logger.Info("test message", "key", "value")
	logger.Debug("filtered out")

	// Close log file to allow reading on Windows
	CloseLogFile()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	entries := readJSONLines(t, content)
	require.Len(t, entries, 1)
	assert.Equal(t, "test message", entries[0]["msg"])
	assert.Equal(t, "value", entries[0]["key"])
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Contains(t, entries[0], "source")
}

func TestTraceIDInjection(t *testing.T) {
	var console bytes.Buffer
	logger, file, err := newLogger(config.LoggingConfig{Level: "debug", Format: "json", Output: "console"}, &console)
	require.NoError(t, err)
	assert.Nil(t, file)

	ctx := WithTraceID(context.Background(), "test-trace-123")
	logger.With("component", "pipeline").InfoContext(ctx, "test with trace")
	logger.Info("no trace")

	entries := readJSONLines(t, console.Bytes())
	require.Len(t, entries, 2)
	assert.Equal(t, "test-trace-123", entries[0]["trace_id"])
	assert.Equal(t, "pipeline", entries[0]["component"])
	assert.NotContains(t, entries[1], "trace_id")
}

func TestTextConsoleWithFileCopy(t *testing.T) {
	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "both.log")
	logger, file, err := newLogger(config.LoggingConfig{
		Level:    "warn",
		Format:   "text",
		Output:   "both",
		FilePath: logFile,
	}, &console)
	require.NoError(t, err)
	require.NotNil(t, file)

	logger.Warn("disk nearly full", "free_mb", 12)
	logger.Info("below threshold")
	require.NoError(t, file.Close())

	text := console.String()
	assert.Contains(t, text, "disk nearly full")
	assert.Contains(t, text, "free_mb=12")
	assert.NotContains(t, text, "below threshold")
	assert.NotContains(t, text, "\x1b[", "no color codes for a non-terminal writer")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	entries := readJSONLines(t, content)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0]["level"])
}

func TestLogFileError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, _, err := newLogger(config.LoggingConfig{Output: "file", FilePath: filepath.Join(blocker, "x.log")}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open log file")
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"INFO":    "INFO",
		"warning": "WARN",
		"error":   "ERROR",
		"verbose": "INFO",
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in).String(), in)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)), "existing trace id is kept")
	assert.NotEqual(t, id, GenerateTraceID())

	var buf bytes.Buffer
	logger, _, err := newLogger(config.LoggingConfig{Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Same(t, logger, WithError(logger, nil))
	WithError(logger, errors.New("boom")).Info("failed")
	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.NotContains(t, buf.String(), `"error_type"`)

	buf.Reset()
	WithError(logger, fmt.Errorf("run: %w", &apperrors.EmptySnapshotError{InputRows: 1})).Error("failed")
	assert.Contains(t, buf.String(), `"error_type":"EMPTY_SNAPSHOT"`)
}
