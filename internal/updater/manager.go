package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"sync"

	"github.com/neboloop/turbo/internal/bridge"
	"github.com/neboloop/turbo/internal/events"
)

var (
	ErrBusy           = errors.New("updater: an update operation is already running")
	ErrNoUpdate       = errors.New("updater: no update available")
	ErrNotDownloaded  = errors.New("updater: update not downloaded")
	ErrNoReleaseAsset = errors.New("updater: release has no asset for this platform")
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Version      string
	AutoDownload bool
	Subject      *events.Subject // receives every status on events.TopicUpdateStatus
	Logger       *slog.Logger
	// Apply installs a downloaded binary. Defaults to Apply.
	Apply func(path string) error
}

// Manager drives the update lifecycle and publishes each transition as a
// bridge.UpdateStatus.
type Manager struct {
	checker *Checker
	opts    ManagerOptions
	logger  *slog.Logger

	mu                sync.Mutex
	status            bridge.UpdateStatus
	result            *Result
	downloaded        string // verified binary waiting for Install
	downloadedVersion string
	busy              bool
}

func NewManager(checker *Checker, opts ManagerOptions) *Manager {
	if opts.Apply == nil {
		opts.Apply = Apply
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		checker: checker,
		opts:    opts,
		logger:  logger,
		status:  bridge.StatusIdle(),
	}
}

// Status returns the latest status.
func (m *Manager) Status() bridge.UpdateStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Result returns the last successful check, or nil.
func (m *Manager) Result() *Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// Check looks for a newer release. With AutoDownload set, an available update
// is downloaded in the background. A check that finds the version already
// downloaded reports downloaded again; a newer release discards the stale
// download.
func (m *Manager) Check(ctx context.Context) (*Result, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	m.publish(bridge.StatusChecking())

	result, err := m.checker.Check(ctx, m.opts.Version)
	if err != nil {
		m.finish(bridge.StatusError(err.Error()))
		return nil, err
	}

	m.mu.Lock()
	m.result = result
	ready := m.downloaded != "" && result.Available && result.LatestVersion == m.downloadedVersion
	var stale string
	if m.downloaded != "" && !ready {
		stale = m.downloaded
		m.downloaded, m.downloadedVersion = "", ""
	}
	m.mu.Unlock()

	if stale != "" {
		m.logger.Info("discarding superseded update", "path", stale, "latest", result.LatestVersion)
		os.Remove(stale)
	}
	if ready {
		m.finish(bridge.StatusDownloaded(result.LatestVersion))
		return result, nil
	}
	if !result.Available {
		m.finish(bridge.StatusNotAvailable())
		return result, nil
	}
	m.finish(bridge.StatusAvailable(result.LatestVersion, result.ReleaseNotes))

	if m.opts.AutoDownload {
		go func() {
			if err := m.Download(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("auto-download failed", "error", err)
			}
		}()
	}
	return result, nil
}

// Download fetches and verifies the available update.
func (m *Manager) Download(ctx context.Context) error {
	m.mu.Lock()
	result := m.result
	available := m.status.Type == bridge.StatusTypeAvailable
	m.mu.Unlock()
	if result == nil || !result.Available || !available {
		return ErrNoUpdate
	}
	if result.AssetURL == "" {
		m.publish(bridge.StatusError(ErrNoReleaseAsset.Error()))
		return ErrNoReleaseAsset
	}
	if err := m.begin(); err != nil {
		return err
	}

	m.publish(bridge.StatusDownloading(0))
	last := -1.0
	path, err := Download(ctx, m.client(), result.AssetURL, func(done, total int64) {
		if total <= 0 {
			return
		}
		pct := math.Floor(float64(done) * 100 / float64(total))
		if pct > last {
			last = pct
			m.publish(bridge.StatusDownloading(pct))
		}
	})
	if err != nil {
		m.finish(bridge.StatusError(err.Error()))
		return err
	}

	if result.ChecksumURL != "" {
		if err := VerifyChecksum(ctx, m.client(), path, result.ChecksumURL, result.AssetName); err != nil {
			os.Remove(path)
			m.finish(bridge.StatusError(err.Error()))
			return err
		}
	} else {
		m.logger.Warn("release has no checksums, skipping verification", "version", result.LatestVersion)
	}

	m.mu.Lock()
	m.downloaded, m.downloadedVersion = path, result.LatestVersion
	m.mu.Unlock()
	m.finish(bridge.StatusDownloaded(result.LatestVersion))
	return nil
}

// Install applies the downloaded update. On success the process is usually
// replaced and Install does not return. A failed re-check does not discard
// the download.
func (m *Manager) Install(context.Context) error {
	m.mu.Lock()
	path := m.downloaded
	m.mu.Unlock()
	if path == "" {
		return ErrNotDownloaded
	}
	if err := m.begin(); err != nil {
		return err
	}

	m.logger.Info("installing update", "path", path)
	if err := m.opts.Apply(path); err != nil {
		m.finish(bridge.StatusError(err.Error()))
		return fmt.Errorf("updater: install: %w", err)
	}

	m.mu.Lock()
	m.downloaded, m.downloadedVersion = "", ""
	m.mu.Unlock()
	m.finish(bridge.StatusIdle())
	return nil
}

func (m *Manager) client() *http.Client {
	if m.checker == nil {
		return nil
	}
	return m.checker.HTTPClient()
}

func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}
	m.busy = true
	return nil
}

func (m *Manager) finish(s bridge.UpdateStatus) {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
	m.publish(s)
}

func (m *Manager) publish(s bridge.UpdateStatus) {
	m.mu.Lock()
	if !bridge.CanTransition(m.status.Type, s.Type) {
		m.logger.Debug("unexpected update transition", "from", m.status.Type, "to", s.Type)
	}
	m.status = s
	m.mu.Unlock()

	if m.opts.Subject == nil {
		return
	}
	if err := events.Emit(m.opts.Subject, events.TopicUpdateStatus, s); err != nil {
		m.logger.Warn("publish update status", "error", err)
	}
}
