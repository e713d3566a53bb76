package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitDisabled(t *testing.T) {
	require.False(t, L.Enabled(t.Context(), slog.LevelError), "default logger must discard")

	var buf bytes.Buffer
	_, err := Init(Options{Enabled: true, Stderr: &buf})
	require.NoError(t, err)
	require.True(t, L.Enabled(t.Context(), slog.LevelInfo))

	closeFn, err := Init(Options{})
	require.NoError(t, err)
	require.NoError(t, closeFn())
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		require.False(t, L.Enabled(t.Context(), level), "level %s", level)
	}

	Error("dropped")
	require.Empty(t, buf.String())
}

func TestInitStderr(t *testing.T) {
	var buf bytes.Buffer
	closeFn, err := Init(Options{Enabled: true, Level: slog.LevelDebug, Stderr: &buf})
	require.NoError(t, err)
	defer closeFn()

	Debug("hello", "pfn", "0x10")
	require.Contains(t, buf.String(), "msg=hello")
	require.Contains(t, buf.String(), "pfn=0x10")
}

func TestInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagectl.log")
	closeFn, err := Init(Options{Enabled: true, File: path})
	require.NoError(t, err)

	Debug("dropped")
	Warn("kept", "order", 3)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	require.Equal(t, "kept", rec["msg"])
	require.Equal(t, float64(3), rec["order"])

	_, err = Init(Options{})
	require.NoError(t, err)
}
