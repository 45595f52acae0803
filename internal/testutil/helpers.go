package testutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/observability"
)

// WriteFile writes content to name under dir, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// WriteConfig writes a config file into a temp dir and points
// SPARKIFY_CONFIG at it.
func WriteConfig(t *testing.T, content string) string {
	t.Helper()
	path := WriteFile(t, t.TempDir(), "config.yaml", content)
	t.Setenv("SPARKIFY_CONFIG", path)
	return path
}

// LogBuffer collects JSON log lines for assertions.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Entries decodes every log line written so far.
func (b *LogBuffer) Entries(t *testing.T) []map[string]interface{} {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]interface{}
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		out = append(out, entry)
	}
	return out
}

// Messages returns the message of every log line in order.
func (b *LogBuffer) Messages(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, e := range b.Entries(t) {
		msg, _ := e["message"].(string)
		out = append(out, msg)
	}
	return out
}

// NewTestLogger returns a debug-level JSON logger writing to a LogBuffer.
func NewTestLogger() (*observability.Logger, *LogBuffer) {
	buf := &LogBuffer{}
	return observability.NewLogger(observability.LoggerConfig{
		Level:  observability.DebugLevel,
		Format: observability.FormatJSON,
		Output: buf,
	}), buf
}
