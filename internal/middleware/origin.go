package middleware

import (
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
)

// IsLocalhostOrigin reports whether origin points at this machine on any port.
func IsLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "wails":
	default:
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") || strings.EqualFold(host, "wails.localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// CORS answers cross-origin requests from the allow list. Entries are exact
// origins, "localhost" (any loopback origin) or "*" (any origin, without
// credentials). An empty list allows loopback origins only.
// The list can be swapped at runtime with SetAllowedOrigins.
type CORS struct {
	allowed atomic.Pointer[[]string]
}

// NewCORS creates the middleware with the given allow list.
func NewCORS(origins []string) *CORS {
	c := &CORS{}
	c.SetAllowedOrigins(origins)
	return c
}

// SetAllowedOrigins replaces the allow list.
func (c *CORS) SetAllowedOrigins(origins []string) {
	list := slices.Clone(origins)
	if len(list) == 0 {
		list = []string{"localhost"}
	}
	c.allowed.Store(&list)
}

// Allowed reports whether origin may read responses.
func (c *CORS) Allowed(origin string) bool {
	ok, _ := c.match(origin)
	return ok
}

// match reports whether origin is allowed and whether it was named
// explicitly rather than through "*".
func (c *CORS) match(origin string) (allowed, explicit bool) {
	if origin == "" {
		return false, false
	}
	wildcard := false
	for _, o := range *c.allowed.Load() {
		switch {
		case strings.EqualFold(o, origin):
			return true, true
		case o == "localhost" && IsLocalhostOrigin(origin):
			return true, true
		case o == "*":
			wildcard = true
		}
	}
	return wildcard, false
}

// Handler is the chi middleware.
func (c *CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed, explicit := c.match(origin); allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if explicit {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		// Origins outside the list get no CORS headers and the browser blocks them.

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
