//go:build desktop

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/wailsapp/wails/v3/pkg/application"

	"github.com/neboloop/turbo/internal/bridge"
	"github.com/neboloop/turbo/internal/defaults"
	"github.com/neboloop/turbo/internal/events"
	"github.com/neboloop/turbo/internal/host"
	"github.com/neboloop/turbo/internal/ipc"
	"github.com/neboloop/turbo/internal/logging"
	"github.com/neboloop/turbo/internal/middleware"
	"github.com/neboloop/turbo/internal/notify"
	"github.com/neboloop/turbo/internal/server"
	"github.com/neboloop/turbo/internal/svc"
	"github.com/neboloop/turbo/internal/updater"
)

// RunDesktop starts Turbo with a native window. The REST API, the IPC socket
// and the background update check run alongside the Wails event loop.
func RunDesktop() error {
	// Mark the process (and helpers it starts) as running inside the shell.
	os.Setenv(bridge.UIContextVar, "1")
	os.Setenv(bridge.HostMarkerVar, "1")

	// Ensure data directory exists with default files
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

	// Release lock before binary restart so the new process can acquire it
	updater.OnPreApply(func() { releaseLock(lockFile) })

	c := *ServerConfig

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize shared ServiceContext ONCE - single owner of the database connection
	svcCtx, err := svc.NewServiceContext(ctx, c, svc.Options{GitHubToken: releaseToken()})
	if err != nil {
		return err
	}
	defer svcCtx.Close()

	hostSvc := host.New(host.Config{
		Name:    c.App.Name,
		Version: svcCtx.Version,
		DataDir: dataDir,
		Files:   svcCtx.Files,
		Updates: svcCtx.UpdateManager(),
		Subject: svcCtx.Subject,
	})

	// Development loads the UI dev server; otherwise the API server serves it.
	windowURL := c.App.BaseURL
	if os.Getenv("TURBO_ENV") == "development" {
		windowURL = c.App.WebURL
	}

	bindings := &DesktopService{host: hostSvc}
	wailsApp := application.New(application.Options{
		Name:        c.App.Name,
		Description: "Turbo desktop",
		Services: []application.Service{
			application.NewService(bindings),
		},
		Mac: application.MacOptions{
			ApplicationShouldTerminateAfterLastWindowClosed: true,
		},
		Linux: application.LinuxOptions{
			ProgramName: "turbo",
		},
	})
	bindings.app = wailsApp

	window := wailsApp.Window.NewWithOptions(application.WebviewWindowOptions{
		Name:      "main",
		Title:     c.App.Name,
		Width:     1200,
		Height:    800,
		MinWidth:  800,
		MinHeight: 600,
		URL:       windowURL,
	})
	hostSvc.SetWindow(wailsWindow{win: window, quit: func() { safeQuit(wailsApp) }})
	hostSvc.SetDialogs(wailsDialogs{app: wailsApp})

	cors := middleware.NewCORS(c.AllowedOrigins())

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	// REST API
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Run(ctx, c, server.ServerOptions{SvcCtx: svcCtx, CORS: cors, Quiet: true}); err != nil {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	// IPC socket for out-of-process UI helpers
	ipcServer := ipc.NewServer(hostSvc, ipc.WithServerLogger(logging.Logger()))
	ipcURL, err := serveIPC(ctx, &wg, c.IPCAddr(), ipcServer, errCh)
	if err != nil {
		return err
	}
	addrPath := filepath.Join(dataDir, ipcAddrFile)
	if err := os.WriteFile(addrPath, []byte(ipcURL+"\n"), 0600); err != nil {
		logging.Warnf("[Desktop] cannot publish IPC address: %v", err)
	}
	defer os.Remove(addrPath)

	wg.Add(1)
	go func() {
		defer wg.Done()
		watchConfig(ctx, svcCtx, cors)
	}()

	notifier := notify.New(c.App.Name)
	svcCtx.StartBackgroundUpdater(ctx, func(result *updater.Result) {
		logUpdate(result)
		wailsApp.Event.Emit("update:available", result)
		if err := notifier.Send(c.App.Name+" "+result.LatestVersion, "A new version is available."); err != nil {
			logging.Debugf("[Desktop] %v", err)
		}
	})

	// Server failures and signals end the event loop.
	runDone := make(chan struct{})
	go func() {
		select {
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\033[31mFatal: %v\033[0m\n", err)
			cancel()
		case <-ctx.Done():
		case <-runDone:
			return
		}
		safeQuit(wailsApp)
	}()

	fmt.Println()
	fmt.Printf("  %s desktop running\n", c.App.Name)
	fmt.Printf("  API: %s\n", c.App.BaseURL)
	fmt.Printf("  IPC: %s\n", ipcURL)
	fmt.Printf("  Data: %s\n", dataDir)
	fmt.Println()

	// Run Wails event loop on main thread (blocks until app.Quit()).
	runErr := wailsApp.Run()
	close(runDone)

	cancel()
	ipcServer.Close()
	wg.Wait()
	fmt.Printf("\n\033[32m%s stopped.\033[0m\n", c.App.Name)
	return runErr
}

// serveIPC binds the loopback IPC listener and serves /ipc until ctx is done.
func serveIPC(ctx context.Context, wg *sync.WaitGroup, addr string, h http.Handler, errCh chan<- error) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("ipc listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/ipc", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ipc server error: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	return "ws://" + ln.Addr().String() + "/ipc", nil
}

// safeQuit calls App.Quit() with recovery from Wails v3 alpha panics.
// Wails alpha.67 has a known issue where windowsSystemTray.destroy() can panic
// with a nil pointer dereference on globalApplication during cleanup.
func safeQuit(app *application.App) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "[Desktop] Recovered from quit panic: %v\n", r)
			os.Exit(0)
		}
	}()
	app.Quit()
}

// DesktopService is bound to the webview. Its methods are the native host
// endpoint the UI reaches through the Wails bindings.
type DesktopService struct {
	host        *host.Service
	app         *application.App
	unsubscribe func()
}

func (d *DesktopService) ServiceName() string { return "turbo" }

// ServiceStartup forwards update statuses to the webview as update:status
// events.
func (d *DesktopService) ServiceStartup(ctx context.Context, _ application.ServiceOptions) error {
	d.unsubscribe = d.host.SubscribeUpdateStatus(func(s bridge.UpdateStatus) {
		d.app.Event.Emit(events.TopicUpdateStatus, s)
	})
	return nil
}

func (d *DesktopService) ServiceShutdown() error {
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
	return nil
}

func (d *DesktopService) ReadFile(ctx context.Context, path string) (string, error) {
	return d.host.ReadFile(ctx, path)
}

func (d *DesktopService) WriteFile(ctx context.Context, path, content string) error {
	return d.host.WriteFile(ctx, path, content)
}

func (d *DesktopService) FileExists(ctx context.Context, path string) (bool, error) {
	return d.host.FileExists(ctx, path)
}

func (d *DesktopService) GetAppInfo(ctx context.Context) (bridge.AppInfo, error) {
	return d.host.AppInfo(ctx)
}

func (d *DesktopService) GetPath(ctx context.Context, name string) (string, error) {
	p, err := bridge.ParsePathName(name)
	if err != nil {
		return "", err
	}
	return d.host.GetPath(ctx, p)
}

func (d *DesktopService) Minimize(ctx context.Context) error { return d.host.Minimize(ctx) }
func (d *DesktopService) Maximize(ctx context.Context) error { return d.host.Maximize(ctx) }
func (d *DesktopService) Close(ctx context.Context) error    { return d.host.Close(ctx) }

func (d *DesktopService) OpenFileDialog(ctx context.Context, opts *bridge.OpenDialogOptions) (*string, error) {
	return d.host.OpenFileDialog(ctx, opts)
}

func (d *DesktopService) SaveFileDialog(ctx context.Context, opts *bridge.SaveDialogOptions) (*string, error) {
	return d.host.SaveFileDialog(ctx, opts)
}

func (d *DesktopService) CheckForUpdates(ctx context.Context) error {
	return d.host.CheckForUpdates(ctx)
}

func (d *DesktopService) DownloadUpdate(ctx context.Context) error {
	return d.host.DownloadUpdate(ctx)
}

func (d *DesktopService) InstallUpdate(ctx context.Context) error {
	return d.host.InstallUpdate(ctx)
}

// wailsWindow adapts a Wails WebviewWindow to host.Window.
type wailsWindow struct {
	win  *application.WebviewWindow
	quit func()
}

func (w wailsWindow) Minimise()         { w.win.Minimise() }
func (w wailsWindow) Maximise()         { w.win.Maximise() }
func (w wailsWindow) UnMaximise()       { w.win.UnMaximise() }
func (w wailsWindow) IsMaximised() bool { return w.win.IsMaximised() }

// Close quits the app: closing the only window ends the session.
func (w wailsWindow) Close() { w.quit() }

// wailsDialogs adapts the Wails dialog manager to host.Dialogs.
type wailsDialogs struct {
	app *application.App
}

func (d wailsDialogs) OpenFile(opts *bridge.OpenDialogOptions) (string, error) {
	dlg := d.app.Dialog.OpenFile().CanChooseFiles(true)
	if opts != nil {
		for _, f := range opts.Filters {
			dlg.AddFilter(f.Name, filterPattern(f.Extensions))
		}
	}
	return dlg.PromptForSingleSelection()
}

func (d wailsDialogs) SaveFile(opts *bridge.SaveDialogOptions) (string, error) {
	dlg := d.app.Dialog.SaveFile()
	if opts != nil {
		if opts.DefaultPath != "" {
			dir, name := filepath.Split(opts.DefaultPath)
			if dir != "" {
				dlg.SetDirectory(dir)
			}
			dlg.SetFilename(name)
		}
		for _, f := range opts.Filters {
			dlg.AddFilter(f.Name, filterPattern(f.Extensions))
		}
	}
	return dlg.PromptForSingleSelection()
}

// filterPattern turns ["txt", "md"] into "*.txt;*.md".
func filterPattern(exts []string) string {
	patterns := make([]string, 0, len(exts))
	for _, e := range exts {
		patterns = append(patterns, "*."+strings.TrimPrefix(e, "."))
	}
	if len(patterns) == 0 {
		return "*"
	}
	return strings.Join(patterns, ";")
}
