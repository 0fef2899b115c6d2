package svc

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/neboloop/turbo/internal/config"
	"github.com/neboloop/turbo/internal/crashlog"
	"github.com/neboloop/turbo/internal/dataset"
	"github.com/neboloop/turbo/internal/db"
	"github.com/neboloop/turbo/internal/events"
	"github.com/neboloop/turbo/internal/files"
	"github.com/neboloop/turbo/internal/logging"
	"github.com/neboloop/turbo/internal/updater"
)

// ServiceContext holds the dependencies shared by the REST handlers and the
// desktop host. It is the single owner of the database connection.
type ServiceContext struct {
	Config  config.Config
	Version string // Build version (e.g. "v0.2.0" or "dev")

	Files   *files.Store
	DB      *db.Store
	Users   *dataset.Repository
	Subject *events.Subject

	updates   *updater.Manager
	updatesMu sync.RWMutex
	closeOnce sync.Once
}

// Options customises NewServiceContext. The zero value is fine.
type Options struct {
	// HTTPClient is used for release lookups and downloads.
	HTTPClient *http.Client
	// ReleaseBaseURL points release lookups at a GitHub API compatible server.
	ReleaseBaseURL string
	// GitHubToken authenticates release lookups.
	GitHubToken string
}

// NewServiceContext opens the database, seeds the dataset and, when updates
// are enabled, creates the update manager.
func NewServiceContext(ctx context.Context, c config.Config, opts ...Options) (*ServiceContext, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	fs, err := files.NewStore(c.FS.Root)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}

	store, err := db.NewSQLite(ctx, c.Database.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	users := dataset.NewRepository(store, c.Data.Count, c.Data.Seed)
	if err := users.Ensure(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("dataset: %w", err)
	}

	crashlog.Init(store)

	svcCtx := &ServiceContext{
		Config:  c,
		Version: c.App.Version,
		Files:   fs,
		DB:      store,
		Users:   users,
		// Sync delivery keeps update statuses in emit order; subscribers
		// only enqueue.
		Subject: events.NewSubject(events.WithReplay(1), events.WithSyncDelivery(), events.WithLogger(logging.Logger())),
	}

	if c.IsUpdateEnabled() {
		checker := updater.NewChecker(c.Update.Owner, c.Update.Repo, o.HTTPClient).WithToken(o.GitHubToken)
		if o.ReleaseBaseURL != "" {
			if checker, err = checker.WithBaseURL(o.ReleaseBaseURL); err != nil {
				svcCtx.Close()
				return nil, fmt.Errorf("updater: %w", err)
			}
		}
		svcCtx.SetUpdateManager(updater.NewManager(checker, updater.ManagerOptions{
			Version:      c.App.Version,
			AutoDownload: c.IsAutoDownload(),
			Subject:      svcCtx.Subject,
			Logger:       logging.Logger(),
		}))
	}

	logging.Infof("Service context ready (files=%s, db=%s, users=%d)", displayRoot(fs), c.Database.SQLitePath, c.Data.Count)
	return svcCtx, nil
}

// SetUpdateManager installs the update manager.
func (svc *ServiceContext) SetUpdateManager(m *updater.Manager) {
	svc.updatesMu.Lock()
	defer svc.updatesMu.Unlock()
	svc.updates = m
}

// UpdateManager returns the update manager (nil when updates are disabled).
func (svc *ServiceContext) UpdateManager() *updater.Manager {
	svc.updatesMu.RLock()
	defer svc.updatesMu.RUnlock()
	return svc.updates
}

// StartBackgroundUpdater runs the scheduled update check until ctx is done.
// notify is called once per newly found version. It is a no-op when updates
// are disabled.
func (svc *ServiceContext) StartBackgroundUpdater(ctx context.Context, notify updater.NotifyFunc) {
	m := svc.UpdateManager()
	if m == nil {
		return
	}
	checker := updater.NewBackgroundChecker(m, svc.Config.Update.Schedule, svc.Config.Update.StartupDelay, notify)
	go func() {
		if err := checker.Run(ctx); err != nil {
			logging.Errorf("[updater] background checker stopped: %v", err)
		}
	}()
}

// Close releases the database and stops the event loop.
func (svc *ServiceContext) Close() {
	svc.closeOnce.Do(func() {
		if svc.Subject != nil {
			events.Complete(svc.Subject)
		}
		if svc.DB != nil {
			if err := svc.DB.Close(); err != nil {
				logging.Warnf("close database: %v", err)
			}
		}
	})
}

func displayRoot(fs *files.Store) string {
	if fs.Root() == "" {
		return "unrestricted"
	}
	return fs.Root()
}
