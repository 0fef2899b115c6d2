package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shipped(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../../etc/turbo.yaml")
	require.NoError(t, err)
	return data
}

func clearTurboEnv(t *testing.T) {
	for _, k := range []string{
		"TURBO_HOST", "TURBO_PORT", "TURBO_API_URL", "TURBO_WEB_URL",
		"TURBO_ALLOWED_ORIGINS", "TURBO_FS_ROOT", "TURBO_UPDATES", "TURBO_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadShippedDefaults(t *testing.T) {
	clearTurboEnv(t)

	c, err := Load(shipped(t))
	require.NoError(t, err)

	assert.Equal(t, 3001, c.Port)
	assert.Equal(t, "0.0.0.0:3001", c.Addr())
	assert.Equal(t, "Turbo App", c.App.Name)
	assert.Equal(t, "http://localhost:3001", c.App.BaseURL)
	assert.Equal(t, "http://localhost:3000", c.App.WebURL)
	assert.Equal(t, "127.0.0.1:0", c.IPCAddr())
	assert.Equal(t, []string{"localhost", "http://localhost:3000"}, c.AllowedOrigins())
	assert.True(t, c.IsRateLimitEnabled())
	assert.True(t, c.IsSecurityHeadersEnabled())
	assert.Equal(t, time.Minute, c.RateLimitWindow())
	assert.Equal(t, 1000, c.Data.Count)
	assert.Equal(t, ":memory:", c.Database.SQLitePath)
	assert.True(t, c.IsUpdateEnabled())
	assert.False(t, c.IsAutoDownload())
	assert.Equal(t, "@every 6h", c.Update.Schedule)
	assert.Equal(t, 3*time.Second, c.Update.StartupDelay)
	assert.Equal(t, "info", c.Log.Level)
}

func TestEnvExpansion(t *testing.T) {
	clearTurboEnv(t)
	t.Setenv("TURBO_PORT", "4000")
	t.Setenv("TURBO_ALLOWED_ORIGINS", "https://app.example.com, localhost")
	t.Setenv("TURBO_UPDATES", "false")
	t.Setenv("TURBO_LOG_LEVEL", "debug")

	c, err := Load(shipped(t))
	require.NoError(t, err)
	assert.Equal(t, 4000, c.Port)
	assert.Equal(t, "http://localhost:4000", c.App.BaseURL)
	assert.Equal(t, []string{"https://app.example.com", "localhost"}, c.AllowedOrigins())
	assert.False(t, c.IsUpdateEnabled())
	assert.Equal(t, "debug", c.Log.Level)
}

func TestAllowedOriginsIncludeWebURL(t *testing.T) {
	clearTurboEnv(t)
	t.Setenv("TURBO_WEB_URL", "https://ui.example.com/app/")

	c, err := Load(shipped(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost", "https://ui.example.com"}, c.AllowedOrigins())
}

func TestOverlayFiles(t *testing.T) {
	clearTurboEnv(t)
	dir := t.TempDir()
	overlay := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(overlay, []byte("Port: 5000\nFS:\n  Root: /srv/files\nData:\n  Seed: 42\n"), 0644))

	c, err := Load(shipped(t), overlay, filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5000, c.Port)
	assert.Equal(t, "/srv/files", c.FS.Root)
	assert.Equal(t, uint64(42), c.Data.Seed)
	assert.Equal(t, 1000, c.Data.Count, "untouched values survive the overlay")
}

func TestCommentedTemplateIsANoOp(t *testing.T) {
	clearTurboEnv(t)
	dir := t.TempDir()
	overlay := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(overlay, []byte("# Port: 9999\n"), 0644))

	c, err := Load(shipped(t), overlay)
	require.NoError(t, err)
	assert.Equal(t, 3001, c.Port)
}

func TestValidate(t *testing.T) {
	c, err := LoadFromBytes([]byte("Log:\n  Level: loud\nUpdate:\n  Schedule: every so often\n"))
	require.NoError(t, err)

	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Log.Level")
	assert.Contains(t, err.Error(), "Update.Schedule")

	c, err = LoadFromBytes([]byte("Port: 70000\n"))
	require.NoError(t, err)
	assert.ErrorContains(t, c.Validate(), "out of range")
}

func TestBadYAML(t *testing.T) {
	_, err := LoadFromBytes([]byte("Port: [1, 2"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "TURBO_DOTENV_TEST_VALUE"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=hello\n"), 0644))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "hello", os.Getenv(key))
}

func TestWatchReloads(t *testing.T) {
	clearTurboEnv(t)
	base := shipped(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Log:\n  Level: info\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 8)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, base, path, func(c Config) { changes <- c }) }()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-changes:
			assert.Equal(t, "debug", c.Log.Level)
			cancel()
			assert.NoError(t, <-done)
			return
		case <-tick.C:
			os.WriteFile(path, []byte("Log:\n  Level: debug\n"), 0644)
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}

func TestWatchIgnoresInvalidFile(t *testing.T) {
	clearTurboEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Port: 3001\n"), 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()

	changes := make(chan Config, 8)
	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(path, []byte("Log:\n  Level: loud\n"), 0644)
	}()
	require.NoError(t, Watch(ctx, shipped(t), path, func(c Config) { changes <- c }))
	assert.Empty(t, changes)
}
