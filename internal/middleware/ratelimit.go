package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/neboloop/turbo/internal/httputil"
)

// RateLimitConfig sets the per-client budget.
type RateLimitConfig struct {
	Requests int           // requests allowed per Window
	Window   time.Duration // refill period
	Burst    int
	IdleTTL  time.Duration // forget clients quiet for this long
}

// APIRateLimitConfig is the default budget for /api routes.
func APIRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests: 600,
		Window:   time.Minute,
		Burst:    100,
		IdleTTL:  10 * time.Minute,
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu        sync.Mutex
	cfg       RateLimitConfig
	limit     rate.Limit
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a limiter. Zero fields fall back to APIRateLimitConfig.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	l := &RateLimiter{
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
	l.apply(cfg)
	return l
}

func (l *RateLimiter) apply(cfg RateLimitConfig) {
	def := APIRateLimitConfig()
	if cfg.Requests <= 0 {
		cfg.Requests = def.Requests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}
	l.cfg = cfg
	l.limit = rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds())
}

// Reconfigure swaps the budget. Existing buckets are dropped so every client
// starts over under the new limits.
func (l *RateLimiter) Reconfigure(cfg RateLimitConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.apply(cfg)
	l.visitors = make(map[string]*visitor)
}

// Allow spends one token for key.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.cfg.Burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	if now.Sub(l.lastSweep) >= l.cfg.IdleTTL/2 {
		l.sweep(now)
	}
	return v.limiter.AllowN(now, 1)
}

// sweep drops idle visitors. Called with mu held.
func (l *RateLimiter) sweep(now time.Time) {
	l.lastSweep = now
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.cfg.IdleTTL {
			delete(l.visitors, k)
		}
	}
}

func (l *RateLimiter) retryAfter() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strconv.Itoa(int(l.cfg.Window.Seconds()))
}

// Middleware rejects clients over budget with 429.
func (l *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", l.retryAfter())
				httputil.ErrorWithCode(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP uses RemoteAddr, which chi's RealIP has already rewritten.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
