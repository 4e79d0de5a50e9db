package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortlink.log")

	logger, closer := New(Options{Level: "info", File: path})
	logger.Debug("hidden")
	logger.Info("click recorded", "link_id", "abc")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "click recorded", entry["msg"])
	assert.Equal(t, "abc", entry["link_id"])
}

func TestNewWritesToWriter(t *testing.T) {
	var buf bytes.Buffer

	logger, closer := New(Options{Level: "debug", Writer: &buf})
	logger.Debug("export started")
	require.NoError(t, closer.Close())

	assert.Contains(t, buf.String(), `"msg":"export started"`)
}
