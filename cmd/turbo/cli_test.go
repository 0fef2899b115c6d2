package cli

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zkr "github.com/zalando/go-keyring"

	"github.com/neboloop/turbo/internal/bridge"
	"github.com/neboloop/turbo/internal/config"
	"github.com/neboloop/turbo/internal/keyring"
	"github.com/neboloop/turbo/internal/middleware"
	"github.com/neboloop/turbo/internal/server"
	"github.com/neboloop/turbo/internal/svc"
)

func rootCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	t.Setenv("TURBO_DATA_DIR", t.TempDir())
	for _, k := range []string{bridge.UIContextVar, bridge.HostMarkerVar, "TURBO_PORT", "TURBO_LOG_LEVEL", "TURBO_UPDATES"} {
		t.Setenv(k, "")
	}

	base, err := os.ReadFile("../../etc/turbo.yaml")
	require.NoError(t, err)
	c, err := config.LoadFromBytes(base)
	require.NoError(t, err)

	cmd := SetupRootCmd(&c, base)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd
}

func TestUserOverlayIsApplied(t *testing.T) {
	cmd := rootCmd(t, "config", "path")
	overlay := filepath.Join(os.Getenv("TURBO_DATA_DIR"), "config.yaml")
	require.NoError(t, os.WriteFile(overlay, []byte("Port: 4100\nLog:\n  Level: warn\n"), 0644))

	require.NoError(t, cmd.Execute())
	assert.Equal(t, 4100, ServerConfig.Port)
	assert.Equal(t, "warn", ServerConfig.Log.Level)
}

func TestExplicitConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Data:\n  Count: 7\n"), 0644))

	cmd := rootCmd(t, "--config", path, "version")
	require.NoError(t, cmd.Execute())
	assert.Equal(t, 7, ServerConfig.Data.Count)
}

func TestInvalidConfigFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Log:\n  Level: loud\n"), 0644))

	err := rootCmd(t, "--config", path, "version").Execute()
	assert.ErrorContains(t, err, "Log.Level")
}

func TestBridgeHeadlessFails(t *testing.T) {
	err := rootCmd(t, "bridge", "--env", "headless", "read", "notes.txt").Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, bridge.ErrTransportUnavailable), "got %v", err)
}

func TestBridgeBrowserUsesRESTAPI(t *testing.T) {
	c, err := config.LoadFromBytes(nil)
	require.NoError(t, err)
	c.FS.Root = t.TempDir()
	c.Data.Count = 5
	c.Update.Enabled = "false"
	svcCtx, err := svc.NewServiceContext(context.Background(), c)
	require.NoError(t, err)
	defer svcCtx.Close()
	api := httptest.NewServer(server.NewRouter(svcCtx, middleware.NewCORS(nil), true))
	defer api.Close()

	require.NoError(t, rootCmd(t, "bridge", "--env", "browser", "--api", api.URL, "write", "hello.txt", "hi there").Execute())
	data, err := os.ReadFile(filepath.Join(c.FS.Root, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi there", string(data))

	require.NoError(t, rootCmd(t, "bridge", "--env", "browser", "--api", api.URL, "read", "hello.txt").Execute())

	err = rootCmd(t, "bridge", "--env", "browser", "--api", api.URL, "read", "missing.txt").Execute()
	assert.True(t, errors.Is(err, bridge.ErrRemoteCallFailed), "got %v", err)

	err = rootCmd(t, "bridge", "--env", "browser", "--api", api.URL, "path", "documents").Execute()
	assert.True(t, errors.Is(err, bridge.ErrUnsupported), "got %v", err)
}

func TestBridgeDesktopWithoutRunningDesktop(t *testing.T) {
	err := rootCmd(t, "bridge", "--env", "desktop-host", "info").Execute()
	assert.ErrorContains(t, err, "not running")
}

func TestConfigToken(t *testing.T) {
	zkr.MockInit()
	t.Setenv(keyring.TokenEnv, "")
	t.Setenv(keyring.DisabledEnv, "")

	require.NoError(t, rootCmd(t, "config", "token", "set", "ghp_123").Execute())
	assert.Equal(t, "ghp_123", releaseToken())

	require.NoError(t, rootCmd(t, "config", "token", "clear").Execute())
	assert.Empty(t, releaseToken())
}
