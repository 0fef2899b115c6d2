package server

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/turbo/internal/config"
	"github.com/neboloop/turbo/internal/events"
	"github.com/neboloop/turbo/internal/middleware"
	"github.com/neboloop/turbo/internal/svc"
	"github.com/neboloop/turbo/internal/types"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	c, err := config.LoadFromBytes(nil)
	require.NoError(t, err)
	c.Data.Count = 20
	c.FS.Root = t.TempDir()
	c.Update.Enabled = "false"
	return c
}

func newTestServer(t *testing.T, c config.Config, cors *middleware.CORS) *httptest.Server {
	t.Helper()
	svcCtx, err := svc.NewServiceContext(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(svcCtx.Close)
	if cors == nil {
		cors = middleware.NewCORS(c.AllowedOrigins())
	}
	srv := httptest.NewServer(NewRouter(svcCtx, cors, true))
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutesRegistered(t *testing.T) {
	srv := newTestServer(t, testConfig(t), nil)

	resp, err := http.Post(srv.URL+"/api/fs/write", "application/json", strings.NewReader(`{"path":"a.txt","content":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, path := range []string{
		"/api/health",
		"/api/fs/read?path=a.txt",
		"/api/fs/exists?path=a.txt",
		"/api/data/users",
		"/api/data/users/paginated?page=2&limit=5",
		"/api/update/check",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err = http.Get(srv.URL + "/api/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSecurityHeaders(t *testing.T) {
	c := testConfig(t)
	srv := newTestServer(t, c, nil)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))

	c.Security.EnableSecurityHeaders = "false"
	srv = newTestServer(t, c, nil)
	resp, err = http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("X-Frame-Options"))
}

func TestCORSReload(t *testing.T) {
	cors := middleware.NewCORS(nil)
	srv := newTestServer(t, testConfig(t), cors)

	origin := func() string {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
		req.Header.Set("Origin", "https://app.example.com")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.Header.Get("Access-Control-Allow-Origin")
	}

	assert.Empty(t, origin(), "an empty list only admits loopback origins")
	cors.SetAllowedOrigins([]string{"https://app.example.com"})
	assert.Equal(t, "https://app.example.com", origin())
	cors.SetAllowedOrigins([]string{"localhost"})
	assert.Empty(t, origin())
}

func TestForeignOriginCannotReadFiles(t *testing.T) {
	c := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(c.FS.Root, "secret.txt"), []byte("s3cret"), 0o600))
	srv := newTestServer(t, c, nil)

	get := func(origin string) *http.Response {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/fs/read?path=secret.txt", nil)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	resp := get("https://evil.example")
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))

	resp = get("http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	srv := newTestServer(t, testConfig(t), nil)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/fs/write", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	c := testConfig(t)
	c.Security.RateLimitRequests = 1
	c.Security.RateLimitInterval = 3600
	c.Security.RateLimitBurst = 2
	srv := newTestServer(t, c, nil)

	codes := make([]int, 3)
	for i := range codes {
		resp, err := http.Get(srv.URL + "/api/health")
		require.NoError(t, err)
		resp.Body.Close()
		codes[i] = resp.StatusCode
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	c.Security.RateLimitEnabled = "false"
	srv = newTestServer(t, c, nil)
	for i := 0; i < 5; i++ {
		resp, err := http.Get(srv.URL + "/api/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestRateLimitFollowsConfigReload(t *testing.T) {
	c := testConfig(t)
	c.Security.RateLimitRequests = 1
	c.Security.RateLimitInterval = 3600
	c.Security.RateLimitBurst = 1
	svcCtx, err := svc.NewServiceContext(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(svcCtx.Close)
	srv := httptest.NewServer(NewRouter(svcCtx, middleware.NewCORS(c.AllowedOrigins()), true))
	t.Cleanup(srv.Close)

	health := func() int {
		resp, err := http.Get(srv.URL + "/api/health")
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	require.Equal(t, http.StatusOK, health())
	require.Equal(t, http.StatusTooManyRequests, health())

	reloaded := c
	reloaded.Security.RateLimitBurst = 5
	require.NoError(t, events.Emit(svcCtx.Subject, events.TopicConfigReload, &reloaded))

	require.Eventually(t, func() bool { return health() == http.StatusOK }, 2*time.Second, 10*time.Millisecond)
}

func TestBodyLimit(t *testing.T) {
	c := testConfig(t)
	c.Security.MaxRequestBodySize = 64
	srv := newTestServer(t, c, nil)

	body := `{"path":"big.txt","content":"` + strings.Repeat("x", 200) + `"}`
	resp, err := http.Post(srv.URL+"/api/fs/write", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompression(t *testing.T) {
	srv := newTestServer(t, testConfig(t), nil)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/data/users", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)

	var users types.ListUsersResponse
	require.NoError(t, json.Unmarshal(raw, &users))
	assert.Equal(t, 20, users.Count)
}

func TestRunGracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	c := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, c, ServerOptions{
			Quiet:    true,
			Listener: ln,
			Ready:    func(addr string) { ready <- addr },
		})
	}()

	var addr string
	select {
	case addr = <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("server not ready")
	}

	resp, err := http.Get("http://" + addr + "/api/health")
	require.NoError(t, err)
	var health types.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health.Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	c := testConfig(t)
	c.Host = "127.0.0.1"
	c.Port = ln.Addr().(*net.TCPAddr).Port

	err = Run(context.Background(), c, ServerOptions{Quiet: true})
	assert.ErrorContains(t, err, "already in use")
}
