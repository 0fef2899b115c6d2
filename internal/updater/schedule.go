package updater

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule     = "@every 6h"
	DefaultStartupDelay = 3 * time.Second
)

// NotifyFunc is called once per newly detected version.
type NotifyFunc func(result *Result)

// BackgroundChecker runs a check shortly after startup and then on a cron
// schedule. It deduplicates notifications so each new version is announced
// once.
type BackgroundChecker struct {
	manager      *Manager
	schedule     string
	startupDelay time.Duration
	notify       NotifyFunc
	logger       *slog.Logger

	mu           sync.Mutex
	lastNotified string
}

func NewBackgroundChecker(m *Manager, schedule string, startupDelay time.Duration, notify NotifyFunc) *BackgroundChecker {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &BackgroundChecker{
		manager:      m,
		schedule:     schedule,
		startupDelay: startupDelay,
		notify:       notify,
		logger:       m.logger,
	}
}

// Run blocks until ctx is cancelled. It returns an error only for an invalid
// schedule.
func (b *BackgroundChecker) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(b.schedule, func() { b.check(ctx) }); err != nil {
		return err
	}

	select {
	case <-time.After(b.startupDelay):
	case <-ctx.Done():
		return nil
	}
	b.check(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (b *BackgroundChecker) check(ctx context.Context) {
	result, err := b.manager.Check(ctx)
	if err != nil {
		b.logger.Debug("background update check failed", "error", err)
		return
	}
	if !result.Available {
		return
	}

	b.mu.Lock()
	already := b.lastNotified == result.LatestVersion
	b.lastNotified = result.LatestVersion
	b.mu.Unlock()

	if !already && b.notify != nil {
		b.notify(result)
	}
}
