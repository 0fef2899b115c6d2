// Package host is the native host endpoint: the desktop process side of the
// bridge. The desktop shell binds it to the webview and the IPC server
// exposes it to out-of-process UI helpers.
package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/adrg/xdg"

	"github.com/neboloop/turbo/internal/bridge"
	"github.com/neboloop/turbo/internal/events"
	"github.com/neboloop/turbo/internal/files"
	"github.com/neboloop/turbo/internal/updater"
)

// ErrWindowUnavailable is returned by window and dialog calls before the
// desktop shell has attached them.
var ErrWindowUnavailable = errors.New("window not available")

// Window is the main application window.
type Window interface {
	Minimise()
	Maximise()
	UnMaximise()
	IsMaximised() bool
	Close()
}

// Dialogs shows native file dialogs. An empty path with a nil error means
// the user cancelled.
type Dialogs interface {
	OpenFile(opts *bridge.OpenDialogOptions) (string, error)
	SaveFile(opts *bridge.SaveDialogOptions) (string, error)
}

// Config configures a Service.
type Config struct {
	Name    string
	Version string
	DataDir string // reported as userData
	Files   *files.Store
	Updates *updater.Manager
	Subject *events.Subject
}

// Service implements bridge.Host in the desktop process.
type Service struct {
	cfg Config

	mu      sync.RWMutex
	window  Window
	dialogs Dialogs
}

var _ bridge.Host = (*Service)(nil)

func New(cfg Config) *Service {
	if cfg.Files == nil {
		cfg.Files, _ = files.NewStore("")
	}
	return &Service{cfg: cfg}
}

// SetWindow attaches the main window once the shell has created it.
func (s *Service) SetWindow(w Window) {
	s.mu.Lock()
	s.window = w
	s.mu.Unlock()
}

// SetDialogs attaches the native dialog implementation.
func (s *Service) SetDialogs(d Dialogs) {
	s.mu.Lock()
	s.dialogs = d
	s.mu.Unlock()
}

func (s *Service) ReadFile(ctx context.Context, path string) (string, error) {
	return s.cfg.Files.Read(ctx, path)
}

func (s *Service) WriteFile(ctx context.Context, path, content string) error {
	return s.cfg.Files.Write(ctx, path, content)
}

func (s *Service) FileExists(ctx context.Context, path string) (bool, error) {
	return s.cfg.Files.Exists(ctx, path)
}

func (s *Service) AppInfo(context.Context) (bridge.AppInfo, error) {
	return bridge.AppInfo{Name: s.cfg.Name, Version: s.cfg.Version, Platform: runtime.GOOS}, nil
}

func (s *Service) GetPath(_ context.Context, name bridge.PathName) (string, error) {
	switch name {
	case bridge.PathHome:
		return os.UserHomeDir()
	case bridge.PathAppData:
		return os.UserConfigDir()
	case bridge.PathUserData:
		if s.cfg.DataDir == "" {
			return "", errors.New("user data directory not configured")
		}
		return s.cfg.DataDir, nil
	case bridge.PathDocuments:
		return xdg.UserDirs.Documents, nil
	case bridge.PathDownloads:
		return xdg.UserDirs.Download, nil
	case bridge.PathDesktop:
		return xdg.UserDirs.Desktop, nil
	}
	return "", fmt.Errorf("unknown path name %q", name)
}

func (s *Service) currentWindow() (Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.window == nil {
		return nil, ErrWindowUnavailable
	}
	return s.window, nil
}

func (s *Service) Minimize(context.Context) error {
	w, err := s.currentWindow()
	if err != nil {
		return err
	}
	w.Minimise()
	return nil
}

// Maximize toggles between maximized and normal.
func (s *Service) Maximize(context.Context) error {
	w, err := s.currentWindow()
	if err != nil {
		return err
	}
	if w.IsMaximised() {
		w.UnMaximise()
	} else {
		w.Maximise()
	}
	return nil
}

func (s *Service) Close(context.Context) error {
	w, err := s.currentWindow()
	if err != nil {
		return err
	}
	w.Close()
	return nil
}

func (s *Service) currentDialogs() (Dialogs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dialogs == nil {
		return nil, ErrWindowUnavailable
	}
	return s.dialogs, nil
}

func (s *Service) OpenFileDialog(_ context.Context, opts *bridge.OpenDialogOptions) (*string, error) {
	d, err := s.currentDialogs()
	if err != nil {
		return nil, err
	}
	return selection(d.OpenFile(opts))
}

func (s *Service) SaveFileDialog(_ context.Context, opts *bridge.SaveDialogOptions) (*string, error) {
	d, err := s.currentDialogs()
	if err != nil {
		return nil, err
	}
	return selection(d.SaveFile(opts))
}

func selection(path string, err error) (*string, error) {
	if err != nil || path == "" {
		return nil, err
	}
	return &path, nil
}

func (s *Service) updates() (*updater.Manager, error) {
	if s.cfg.Updates == nil {
		return nil, errors.New("updates not configured")
	}
	return s.cfg.Updates, nil
}

// CheckForUpdates runs the check in the background; results arrive as
// status pushes.
func (s *Service) CheckForUpdates(ctx context.Context) error {
	m, err := s.updates()
	if err != nil {
		return err
	}
	go m.Check(context.WithoutCancel(ctx))
	return nil
}

// DownloadUpdate waits for the download so failures reach the caller as
// well as the status stream.
func (s *Service) DownloadUpdate(ctx context.Context) error {
	m, err := s.updates()
	if err != nil {
		return err
	}
	return m.Download(ctx)
}

func (s *Service) InstallUpdate(ctx context.Context) error {
	m, err := s.updates()
	if err != nil {
		return err
	}
	go m.Install(context.WithoutCancel(ctx))
	return nil
}

// SubscribeUpdateStatus forwards update statuses to push until cancelled.
func (s *Service) SubscribeUpdateStatus(push func(bridge.UpdateStatus)) func() {
	if s.cfg.Subject == nil {
		return func() {}
	}
	sub := events.Subscribe(s.cfg.Subject, events.TopicUpdateStatus, func(_ context.Context, st bridge.UpdateStatus) error {
		push(st)
		return nil
	})
	return sub.Unsubscribe
}
