package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, slog.LevelInfo, false)
	logger.Debug("hidden")
	logger.Info("period created", "channel", "c1", "start_idx", 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "period created", entry["msg"])
	assert.Equal(t, "c1", entry["channel"])
}

func TestNewWriterText(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, slog.LevelDebug, true).Debug("shown", "k", "v")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "k=v")
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))
	l := slog.Default()
	assert.Same(t, l, OrDiscard(l))
}
