package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestIsLocalhostOrigin(t *testing.T) {
	for origin, want := range map[string]bool{
		"http://localhost:3000":   true,
		"http://127.0.0.1:5173":   true,
		"https://[::1]:8443":      true,
		"wails://wails.localhost": true,
		"http://example.com":      false,
		"http://localhost.evil.io": false,
		"file:///etc/passwd":      false,
		"":                        false,
	} {
		assert.Equal(t, want, IsLocalhostOrigin(origin), origin)
	}
}

func TestCORSDefaultsToLoopback(t *testing.T) {
	h := NewCORS(nil).Handler(okHandler)

	serve := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/fs/read?path=/etc/hosts", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("https://evil.example")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))

	rec = serve("http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSAllowList(t *testing.T) {
	c := NewCORS([]string{"localhost", "https://app.example.com"})
	h := c.Handler(okHandler)

	check := func(origin string) string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Header().Get("Access-Control-Allow-Origin")
	}

	assert.Equal(t, "http://localhost:3000", check("http://localhost:3000"))
	assert.Equal(t, "https://app.example.com", check("https://app.example.com"))
	assert.Empty(t, check("https://other.example.com"))

	c.SetAllowedOrigins([]string{"*"})
	assert.Equal(t, "https://other.example.com", check("https://other.example.com"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://other.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"), "wildcard matches never carry credentials")
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/fs/write", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	NewCORS(nil).Handler(http.NotFoundHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{Requests: 60, Window: time.Minute, Burst: 2})
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "budgets are per client")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "one token refills per second")
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{IdleTTL: time.Minute})
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(2 * time.Minute)
	l.Allow("b")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.visitors, "a")
	assert.Contains(t, l.visitors, "b")
}

func TestRateLimiterSweepsOnInterval(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{IdleTTL: time.Minute})
	start := time.Unix(1_700_000_000, 0)
	now := start
	l.now = func() time.Time { return now }
	has := func(key string) bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		_, ok := l.visitors[key]
		return ok
	}

	l.Allow("b")
	now = start.Add(25 * time.Second)
	l.Allow("a")
	now = start.Add(70 * time.Second)
	l.Allow("b")
	assert.True(t, has("a"), "idle for 45s only")

	now = start.Add(90 * time.Second)
	l.Allow("b")
	assert.True(t, has("a"), "idle past the TTL but the last sweep was 20s ago")

	now = start.Add(100 * time.Second)
	l.Allow("b")
	assert.False(t, has("a"))
}

func TestRateLimiterReconfigure(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Hour, Burst: 1})
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	l.Reconfigure(RateLimitConfig{Requests: 1, Window: time.Minute, Burst: 3})
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1"), "request %d under the new burst", i)
	}
	assert.False(t, l.Allow("10.0.0.1"))
	assert.Equal(t, "60", l.retryAfter())
}

func TestRateLimiterMiddleware(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Hour, Burst: 1})
	h := l.Middleware()(okHandler)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do().Code)
	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
}

func TestSecure(t *testing.T) {
	rec := httptest.NewRecorder()
	Secure(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
