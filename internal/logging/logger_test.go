package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(level slog.Level) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(&Config{Level: level, Format: "json", Output: &buf})
	return l, &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestLevelFiltering(t *testing.T) {
	l, buf := jsonLogger(slog.LevelInfo)
	l.Debug(context.Background(), "dropped")
	assert.Zero(t, buf.Len())

	l.Info(context.Background(), "kept")
	assert.NotZero(t, buf.Len())
}

func TestComponentAndFields(t *testing.T) {
	l, buf := jsonLogger(slog.LevelDebug)
	l = l.WithComponent("server").With("host", "example.com")
	l.Info(context.Background(), "listening", "port", 8080)

	entry := lastLine(t, buf)
	assert.Equal(t, "listening", entry["msg"])
	assert.Equal(t, "server", entry["component"])
	assert.Equal(t, "example.com", entry["host"])
	assert.Equal(t, float64(8080), entry["port"])
}

func TestErrorAttr(t *testing.T) {
	l, buf := jsonLogger(slog.LevelDebug)
	l.Error(context.Background(), errors.New("boom"), "request failed", "path", "/blog")

	entry := lastLine(t, buf)
	assert.Equal(t, "request failed", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "/blog", entry["path"])
	assert.Equal(t, "ERROR", entry["level"])
}

func TestWithDoesNotMutateParent(t *testing.T) {
	l, buf := jsonLogger(slog.LevelDebug)
	child := l.With("scope", "child")

	l.Info(context.Background(), "parent entry")
	parent := lastLine(t, buf)
	_, hasScope := parent["scope"]
	assert.False(t, hasScope)

	child.Info(context.Background(), "child entry")
	assert.Equal(t, "child", lastLine(t, buf)["scope"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: slog.LevelInfo, Format: "text", Output: &buf})
	l.Info(context.Background(), "hello", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "key=value")
}
