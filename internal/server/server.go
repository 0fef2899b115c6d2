// Package server runs the Turbo REST API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/neboloop/turbo/internal/config"
	"github.com/neboloop/turbo/internal/crashlog"
	"github.com/neboloop/turbo/internal/events"
	"github.com/neboloop/turbo/internal/handler"
	"github.com/neboloop/turbo/internal/handler/data"
	"github.com/neboloop/turbo/internal/handler/fs"
	"github.com/neboloop/turbo/internal/logging"
	"github.com/neboloop/turbo/internal/middleware"
	"github.com/neboloop/turbo/internal/svc"
)

const shutdownTimeout = 30 * time.Second

// ServerOptions holds optional dependencies for the server
type ServerOptions struct {
	SvcCtx   *svc.ServiceContext // Pre-initialized service context (desktop mode)
	Quiet    bool                // Suppress startup messages for clean CLI output
	CORS     *middleware.CORS    // Shared so config reloads can swap the allow list
	Listener net.Listener        // Pre-bound listener; c.Addr() is used when nil
	Ready    func(addr string)   // Called once the server accepts connections
}

// Run starts the Turbo API server with the given configuration.
// It blocks until the context is cancelled or the listener fails.
func Run(ctx context.Context, c config.Config, opts ...ServerOptions) error {
	var o ServerOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	return run(ctx, c, o)
}

func run(ctx context.Context, c config.Config, opts ServerOptions) error {
	ln := opts.Listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", c.Addr()); err != nil {
			return fmt.Errorf("port %d is already in use: %w", c.Port, err)
		}
	}

	// Use pre-initialized service context if provided, otherwise create one
	svcCtx := opts.SvcCtx
	if svcCtx == nil {
		var err error
		if svcCtx, err = svc.NewServiceContext(ctx, c); err != nil {
			ln.Close()
			return err
		}
		defer svcCtx.Close()
	}

	cors := opts.CORS
	if cors == nil {
		cors = middleware.NewCORS(c.AllowedOrigins())
	}

	// No WriteTimeout: large dataset responses on slow links would be cut off.
	httpServer := &http.Server{
		Handler:           NewRouter(svcCtx, cors, opts.Quiet),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Serve(ln) }()

	addr := ln.Addr().String()
	if !opts.Quiet {
		fmt.Printf("Server ready at http://%s\n", addr)
	}
	logging.Infof("API server listening on %s", addr)
	if opts.Ready != nil {
		opts.Ready(addr)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}

	if !opts.Quiet {
		fmt.Println("\nShutting down server gracefully...")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Warnf("API server shutdown: %v", err)
	}
	return nil
}

func rateLimitConfig(c config.Config) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Requests: c.Security.RateLimitRequests,
		Window:   c.RateLimitWindow(),
		Burst:    c.Security.RateLimitBurst,
	}
}

// NewRouter builds the API handler: global middleware, then the /api routes.
func NewRouter(svcCtx *svc.ServiceContext, cors *middleware.CORS, quiet bool) http.Handler {
	c := svcCtx.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if !quiet {
		r.Use(middleware.RequestLogger(logging.Logger()))
	}
	r.Use(crashlog.Recoverer)
	r.Use(cors.Handler)
	r.Use(chimw.Compress(5))

	r.Route("/api", func(r chi.Router) {
		if c.IsSecurityHeadersEnabled() {
			r.Use(middleware.Secure)
		}
		if c.IsRateLimitEnabled() {
			limiter := middleware.NewRateLimiter(rateLimitConfig(c))
			// Turning the limiter on or off still needs a restart.
			events.Subscribe(svcCtx.Subject, events.TopicConfigReload, func(_ context.Context, nc *config.Config) error {
				limiter.Reconfigure(rateLimitConfig(*nc))
				return nil
			})
			r.Use(limiter.Middleware())
		}
		r.Use(middleware.MaxBodySize(c.Security.MaxRequestBodySize))

		r.Get("/health", handler.HealthCheckHandler(svcCtx))
		r.Get("/update/check", handler.UpdateCheckHandler(svcCtx))

		registerFSRoutes(r, svcCtx)
		registerDataRoutes(r, svcCtx)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})
	return r
}

// registerFSRoutes registers the local file access routes
func registerFSRoutes(r chi.Router, svcCtx *svc.ServiceContext) {
	r.Get("/fs/read", fs.ReadFileHandler(svcCtx))
	r.Post("/fs/write", fs.WriteFileHandler(svcCtx))
	r.Get("/fs/exists", fs.FileExistsHandler(svcCtx))
}

// registerDataRoutes registers the dummy dataset routes
func registerDataRoutes(r chi.Router, svcCtx *svc.ServiceContext) {
	r.Get("/data/users", data.ListUsersHandler(svcCtx))
	r.Get("/data/users/paginated", data.PaginatedUsersHandler(svcCtx))
}
