package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, slog.LevelDebug, Level())

	require.NoError(t, SetLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, Level())

	require.NoError(t, SetLevel(""))
	assert.Equal(t, slog.LevelInfo, Level())

	assert.Error(t, SetLevel("loud"))
}

func TestSetupWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turbo.log")
	require.NoError(t, Setup(Options{Level: "info", File: path, NoColor: true}))
	defer Close()

	Infof("server started on port %d", 3001)
	Debug("hidden at info level")
	Logger().Warn("structured", "key", "value")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "server started on port 3001")
	assert.Contains(t, out, `"key":"value"`)
	assert.False(t, strings.Contains(out, "hidden at info level"))
}

func TestDisable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turbo.log")
	require.NoError(t, Setup(Options{File: path, NoColor: true}))
	defer Close()

	Disable()
	Info("dropped")
	Logger().Info("also dropped")
	Enable()
	Info("kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}
