// Package bridge lets UI-side code call desktop capabilities without knowing
// where it runs. Each call detects the environment, resolves a route for the
// capability and dispatches to the native host, the REST service, or a local
// browser fallback.
package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neboloop/turbo/internal/defaults"
)

// Bridge is the single entry point for capability calls. It holds no
// per-call state and is safe for concurrent use.
type Bridge struct {
	detector  Detector
	host      Host
	remote    *Remote
	logger    *slog.Logger
	info      AppInfo
	picker    FilePicker
	closeFn   func()
	queueSize int
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithDetector sets the environment detector. Default: EnvDetector.
func WithDetector(d Detector) Option { return func(b *Bridge) { b.detector = d } }

// WithHost sets the native host used on the desktop route.
func WithHost(h Host) Option { return func(b *Bridge) { b.host = h } }

// WithRemote sets the REST client used on the browser route.
func WithRemote(r *Remote) Option { return func(b *Bridge) { b.remote = r } }

func WithLogger(l *slog.Logger) Option { return func(b *Bridge) { b.logger = l } }

// WithAppInfo overrides the name and version reported when no host answers.
// Platform is always filled in from the environment.
func WithAppInfo(info AppInfo) Option { return func(b *Bridge) { b.info = info } }

// WithFilePicker sets the browser fallback for OpenFileDialog.
func WithFilePicker(p FilePicker) Option { return func(b *Bridge) { b.picker = p } }

// WithCloseFunc sets what Close does in a browser (e.g. closing the tab).
func WithCloseFunc(fn func()) Option { return func(b *Bridge) { b.closeFn = fn } }

// WithQueueSize sets the per-subscriber status buffer.
func WithQueueSize(n int) Option { return func(b *Bridge) { b.queueSize = n } }

// New creates a bridge.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		detector:  EnvDetector{},
		logger:    slog.Default(),
		info:      AppInfo{Name: defaults.AppName, Version: defaults.AppVersion},
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Environment runs a fresh detection.
func (b *Bridge) Environment() Environment {
	return b.detector.Detect()
}

// route resolves c and checks that the chosen transport is configured.
// A non-nil error means the call must fail with it.
func (b *Bridge) route(c Capability) (Route, Environment, error) {
	env := b.detector.Detect()
	r := Resolve(c, env)
	switch r {
	case RouteHost:
		if b.host == nil {
			return r, env, unavailable(c, env, "no native host configured")
		}
	case RouteRemote:
		if b.remote == nil {
			return r, env, unavailable(c, env, "no remote service configured")
		}
	case RouteUnsupported:
		return r, env, unsupported(c, env)
	case RouteUnavailable:
		return r, env, unavailable(c, env, "no transport in "+env.String())
	}
	b.logger.Debug("bridge dispatch", "capability", c.String(), "env", env.String(), "route", r.String())
	return r, env, nil
}

// ReadFile returns the text content of path.
func (b *Bridge) ReadFile(ctx context.Context, path string) (string, error) {
	r, _, err := b.route(CapReadFile)
	if err != nil {
		return "", err
	}
	if r == RouteHost {
		content, err := b.host.ReadFile(ctx, path)
		if err != nil {
			return "", hostFailed(CapReadFile, err)
		}
		return content, nil
	}
	content, err := b.remote.ReadFile(ctx, path)
	if err != nil {
		return "", remoteFailed(CapReadFile, err)
	}
	return content, nil
}

// WriteFile stores content at path.
func (b *Bridge) WriteFile(ctx context.Context, path, content string) error {
	r, _, err := b.route(CapWriteFile)
	if err != nil {
		return err
	}
	if r == RouteHost {
		if err := b.host.WriteFile(ctx, path, content); err != nil {
			return hostFailed(CapWriteFile, err)
		}
		return nil
	}
	if err := b.remote.WriteFile(ctx, path, content); err != nil {
		return remoteFailed(CapWriteFile, err)
	}
	return nil
}

// FileExists reports whether path exists. In a browser any remote failure
// reads as "does not exist".
func (b *Bridge) FileExists(ctx context.Context, path string) (bool, error) {
	r, _, err := b.route(CapFileExists)
	if err != nil {
		return false, err
	}
	if r == RouteHost {
		ok, err := b.host.FileExists(ctx, path)
		if err != nil {
			return false, hostFailed(CapFileExists, err)
		}
		return ok, nil
	}
	ok, err := b.remote.FileExists(ctx, path)
	if err != nil {
		b.logger.Debug("fileExists remote failure treated as absent", "path", path, "error", err)
		return false, nil
	}
	return ok, nil
}

// GetAppInfo returns the application description. Outside the desktop host
// it is synthesized locally.
func (b *Bridge) GetAppInfo(ctx context.Context) (AppInfo, error) {
	r, env, err := b.route(CapGetAppInfo)
	if err != nil {
		return AppInfo{}, err
	}
	if r == RouteHost {
		info, err := b.host.AppInfo(ctx)
		if err != nil {
			return AppInfo{}, hostFailed(CapGetAppInfo, err)
		}
		return info, nil
	}
	info := b.info
	info.Platform = "browser"
	if env == EnvHeadless {
		info.Platform = "server"
	}
	return info, nil
}

// GetPath returns a system location. Desktop host only.
func (b *Bridge) GetPath(ctx context.Context, name PathName) (string, error) {
	if _, _, err := b.route(CapGetPath); err != nil {
		return "", err
	}
	p, err := b.host.GetPath(ctx, name)
	if err != nil {
		return "", hostFailed(CapGetPath, err)
	}
	return p, nil
}

// Minimize minimizes the main window. No-op in a browser.
func (b *Bridge) Minimize(ctx context.Context) error {
	return b.windowControl(ctx, CapMinimize, b.hostMinimize)
}

// Maximize toggles the main window between maximized and normal. No-op in a
// browser.
func (b *Bridge) Maximize(ctx context.Context) error {
	return b.windowControl(ctx, CapMaximize, b.hostMaximize)
}

func (b *Bridge) hostMinimize(ctx context.Context) error { return b.host.Minimize(ctx) }
func (b *Bridge) hostMaximize(ctx context.Context) error { return b.host.Maximize(ctx) }

func (b *Bridge) windowControl(ctx context.Context, c Capability, send func(context.Context) error) error {
	r, env, err := b.route(c)
	if err != nil {
		return err
	}
	if r == RouteNoOp {
		b.logger.Info(c.String()+" not available", "env", env.String())
		return nil
	}
	if err := send(ctx); err != nil {
		return hostFailed(c, err)
	}
	return nil
}

// Close closes the main window, or whatever the browser close function does.
func (b *Bridge) Close(ctx context.Context) error {
	r, _, err := b.route(CapClose)
	if err != nil {
		return err
	}
	if r == RouteDegrade {
		if b.closeFn != nil {
			b.closeFn()
		}
		return nil
	}
	if err := b.host.Close(ctx); err != nil {
		return hostFailed(CapClose, err)
	}
	return nil
}

// OpenFileDialog asks the user to pick a file. nil means cancelled.
func (b *Bridge) OpenFileDialog(ctx context.Context, opts *OpenDialogOptions) (*string, error) {
	r, env, err := b.route(CapOpenFileDialog)
	if err != nil {
		return nil, err
	}
	if r == RouteHost {
		p, err := b.host.OpenFileDialog(ctx, opts)
		if err != nil {
			return nil, hostFailed(CapOpenFileDialog, err)
		}
		return p, nil
	}
	if b.picker == nil {
		return nil, unsupported(CapOpenFileDialog, env)
	}
	var accept []string
	if opts != nil {
		accept = AcceptList(opts.Filters)
	}
	p, err := b.picker(ctx, accept)
	if err != nil {
		return nil, fmt.Errorf("bridge: %s picker: %w", CapOpenFileDialog, err)
	}
	return p, nil
}

// SaveFileDialog asks the user for a destination. nil means cancelled. In a
// browser it returns the default path, if any, without prompting.
func (b *Bridge) SaveFileDialog(ctx context.Context, opts *SaveDialogOptions) (*string, error) {
	r, _, err := b.route(CapSaveFileDialog)
	if err != nil {
		return nil, err
	}
	if r == RouteHost {
		p, err := b.host.SaveFileDialog(ctx, opts)
		if err != nil {
			return nil, hostFailed(CapSaveFileDialog, err)
		}
		return p, nil
	}
	if opts == nil || opts.DefaultPath == "" {
		return nil, nil
	}
	p := opts.DefaultPath
	return &p, nil
}

// CheckForUpdates starts an update check. Progress arrives on the status
// subscription.
func (b *Bridge) CheckForUpdates(ctx context.Context) error {
	if _, _, err := b.route(CapCheckForUpdates); err != nil {
		return err
	}
	if err := b.host.CheckForUpdates(ctx); err != nil {
		return hostFailed(CapCheckForUpdates, err)
	}
	return nil
}

// DownloadUpdate downloads the available update.
func (b *Bridge) DownloadUpdate(ctx context.Context) error {
	if _, _, err := b.route(CapDownloadUpdate); err != nil {
		return err
	}
	if err := b.host.DownloadUpdate(ctx); err != nil {
		return hostFailed(CapDownloadUpdate, err)
	}
	return nil
}

// InstallUpdate asks the host to install the downloaded update and restart.
func (b *Bridge) InstallUpdate(ctx context.Context) error {
	if _, _, err := b.route(CapInstallUpdate); err != nil {
		return err
	}
	if err := b.host.InstallUpdate(ctx); err != nil {
		return hostFailed(CapInstallUpdate, err)
	}
	return nil
}

// SubscribeUpdateStatus registers listener for host status pushes. Outside
// the desktop host nothing is ever pushed and the returned function does
// nothing.
func (b *Bridge) SubscribeUpdateStatus(listener func(UpdateStatus)) Unsubscribe {
	r, env, err := b.route(CapUpdateStatus)
	if err != nil || r != RouteHost {
		if err != nil {
			b.logger.Warn("update status subscription unavailable", "env", env.String(), "error", err)
		}
		return func() {}
	}

	sub := newSubscription(listener, b.queueSize)
	sub.cancel = b.host.SubscribeUpdateStatus(sub.push)
	go sub.run()
	return sub.close
}
