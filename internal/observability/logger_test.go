package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{
		Level:   DebugLevel,
		Output:  &buf,
		Service: "test-service",
		Version: "1.0.0",
	})

	logger.Info("test message")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "test message", entries[0]["message"])
	assert.Equal(t, "test-service", entries[0]["service"])
	assert.Equal(t, "1.0.0", entries[0]["version"])
	assert.Equal(t, "info", entries[0]["level"])
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: InfoLevel, Output: &buf})

	logger.WithField("table", "users").InfoWithFields("inserted rows", map[string]interface{}{
		"rows":  int64(42),
		"error": fmt.Errorf("none"),
	})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "users", entries[0]["table"])
	assert.Equal(t, float64(42), entries[0]["rows"])
	assert.Equal(t, "none", entries[0]["error"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: WarnLevel, Output: &buf})
	child := logger.WithField("component", "runner")

	child.Info("dropped")
	child.Warn("kept")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0]["message"])

	logger.SetLevel(DebugLevel)
	child.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: InfoLevel, Format: FormatConsole, Output: &buf})

	logger.Infof("loaded %d rows", 3)

	assert.Contains(t, buf.String(), "INFO")
	assert.Contains(t, buf.String(), "loaded 3 rows")
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.WithField("k", "v").ErrorWithFields("ignored", map[string]interface{}{"a": 1})
	})
}

func TestLogLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"WARN", WarnLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"UNKNOWN", InfoLevel},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, LogLevelFromString(test.input), test.input)
	}
}
