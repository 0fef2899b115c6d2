package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/neboloop/turbo/internal/logging"
)

// reloadDebounce collapses the burst of events editors produce on save.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the configuration whenever the file at path changes and
// hands the result to onChange. A file that fails to load or validate is
// logged and ignored. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file so that editors
// which save by rename keep triggering reloads.
func Watch(ctx context.Context, base []byte, path string, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	logging.Debugf("[config] Watching %s for changes", abs)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			c, err := Load(base, abs)
			if err != nil {
				logging.Warnf("[config] Ignoring invalid config %s: %v", abs, err)
				continue
			}
			logging.Infof("[config] Reloaded %s", abs)
			onChange(c)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warnf("[config] Watcher error: %v", err)
		}
	}
}
