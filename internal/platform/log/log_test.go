package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewJSONWritesStructuredRecord(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closer, err := New(Config{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	logger.Debug("snapshot committed", "key", "sqlite-buffer", "bytes", 4096)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, "snapshot committed", out["msg"])
	require.Equal(t, "sqlite-buffer", out["key"])
	require.Equal(t, float64(4096), out["bytes"])
}

func TestNewTextRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, _, err := New(Config{Level: "warn"}, &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	require.Empty(t, buf.String())

	logger.Warn("kept")
	require.Contains(t, buf.String(), "kept")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, _, err := New(Config{Format: "xml"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, err := ParseLevel("WARNING")
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestNewWritesToRotatingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "postbook.log")
	logger, closer, err := New(Config{File: path, Format: "json"}, nil)
	require.NoError(t, err)

	logger.Info("file record", "mode", "local")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), `"msg":"file record"`)
}

func TestNewRotatingWriterRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewRotatingWriter(RotationConfig{})
	require.Error(t, err)
}

func TestNewRotatingWriterAppliesDefaults(t *testing.T) {
	t.Parallel()

	writer, err := NewRotatingWriter(RotationConfig{File: filepath.Join(t.TempDir(), "a.log")})
	require.NoError(t, err)
	require.Equal(t, 10, writer.MaxSize)
	require.Equal(t, 5, writer.MaxBackups)
}
