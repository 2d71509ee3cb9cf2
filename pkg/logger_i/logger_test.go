package logger_i

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_ErrorCarriesCallerSource(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	InitWithWriter(&buf, true, "debug")

	NewLogger("test").Error("boom", "doc", "doc1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "doc1", entry["doc"])

	src, ok := entry["source"].(map[string]any)
	require.True(t, ok, "expected a source attribute")
	assert.Contains(t, src["file"], "logger_test.go")
}

func TestLogger_LevelFiltering(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	InitWithWriter(&buf, false, "warn")

	l := NewLogger("filter")
	l.Debug("hidden")
	l.Info("hidden too")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_FromContext(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	InitWithWriter(&buf, true, "info")

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "trace-42")
	NewLogger("ctx").FromContext(ctx).Info("tagged")

	assert.Contains(t, buf.String(), `"traceId":"trace-42"`)
}
