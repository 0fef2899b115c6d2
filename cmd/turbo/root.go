package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/neboloop/turbo/internal/config"
	"github.com/neboloop/turbo/internal/defaults"
	"github.com/neboloop/turbo/internal/events"
	"github.com/neboloop/turbo/internal/keyring"
	"github.com/neboloop/turbo/internal/logging"
	"github.com/neboloop/turbo/internal/middleware"
	"github.com/neboloop/turbo/internal/server"
	"github.com/neboloop/turbo/internal/svc"
	"github.com/neboloop/turbo/internal/updater"
)

// ServeCmd creates the serve command (REST API only)
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API only",
		Long:  `Start the Turbo REST API without the desktop window. Same as 'turbo --headless'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunAll()
		},
	}
}

// RunAll runs the REST API, the background update check and the config
// watcher until SIGINT or SIGTERM.
func RunAll() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := defaults.EnsureDataDir()
	if err != nil {
		return fmt.Errorf("initialize data directory: %w", err)
	}

	// Enforce single instance with lock file
	lockFile, err := acquireLock(dataDir)
	if err != nil {
		return fmt.Errorf("%w: Turbo is already running", err)
	}
	defer releaseLock(lockFile)

	c := *ServerConfig

	// Initialize shared ServiceContext ONCE - single owner of the database connection
	svcCtx, err := svc.NewServiceContext(ctx, c, svc.Options{GitHubToken: releaseToken()})
	if err != nil {
		return err
	}
	defer svcCtx.Close()

	cors := middleware.NewCORS(c.AllowedOrigins())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, c, server.ServerOptions{SvcCtx: svcCtx, CORS: cors})
	})
	g.Go(func() error {
		return watchConfig(gctx, svcCtx, cors)
	})
	svcCtx.StartBackgroundUpdater(gctx, logUpdate)

	err = g.Wait()
	fmt.Println("Turbo stopped.")
	return err
}

// watchConfig applies the reloadable settings (log level, CORS origins, rate
// limits via config:reload) when the user's config file changes. Everything else needs a restart.
func watchConfig(ctx context.Context, svcCtx *svc.ServiceContext, cors *middleware.CORS) error {
	path, err := configPath()
	if err != nil {
		logging.Warnf("[config] Not watching for changes: %v", err)
		return nil
	}
	err = config.Watch(ctx, embeddedConfig, path, func(c config.Config) {
		if verbose {
			c.Log.Level = "debug"
		}
		if err := logging.SetLevel(c.Log.Level); err != nil {
			logging.Warnf("[config] %v", err)
		}
		cors.SetAllowedOrigins(c.AllowedOrigins())
		if err := events.Emit(svcCtx.Subject, events.TopicConfigReload, &c); err != nil {
			logging.Debugf("[config] reload event dropped: %v", err)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		// A missing data directory only costs hot reload.
		logging.Warnf("[config] Not watching for changes: %v", err)
	}
	return nil
}

// releaseToken reads the optional GitHub token for release lookups.
func releaseToken() string {
	token, err := keyring.Token()
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		logging.Debugf("[updater] no release token: %v", err)
	}
	return token
}

// logUpdate announces a newly found release on the console.
func logUpdate(result *updater.Result) {
	logging.Infof("[updater] Turbo %s is available (running %s): %s",
		result.LatestVersion, result.CurrentVersion, result.ReleaseURL)
}
