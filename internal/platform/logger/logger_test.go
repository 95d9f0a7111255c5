package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, slog.LevelInfo)

	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.Info("experiment declared", "experiment", "layout")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "experiment declared", entry["msg"])
	assert.Equal(t, "layout", entry["experiment"])
	assert.Equal(t, "optimize", entry["service"])
}
