package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithLesson(WithSessionID(context.Background(), "s-1"), "atoms")
	logger.InfoContext(ctx, "step entered")

	out := buf.String()
	assert.Contains(t, out, "session_id=s-1")
	assert.Contains(t, out, "lesson=atoms")
	assert.Contains(t, out, "step entered")
}

func TestCorrelationHandlerEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil))).With("component", "session")

	logger.InfoContext(context.Background(), "idle")

	out := buf.String()
	assert.NotContains(t, out, "session_id")
	assert.NotContains(t, out, "lesson=")
	assert.Contains(t, out, "component=session")
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "lessonboard.log")

	logger, closeLog, err := New(Options{Level: "warn", Console: &console, File: path})
	require.NoError(t, err)

	ctx := WithSessionID(context.Background(), "s-2")
	logger.DebugContext(ctx, "frame")
	logger.WarnContext(ctx, "image failed", "ref", "a.png")
	require.NoError(t, closeLog())

	assert.NotContains(t, console.String(), "frame")
	assert.Contains(t, console.String(), "image failed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &rec))
	assert.Equal(t, "image failed", rec["msg"])
	assert.Equal(t, "s-2", rec["session_id"])
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
