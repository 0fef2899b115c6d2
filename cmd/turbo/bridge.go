package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neboloop/turbo/internal/bridge"
	"github.com/neboloop/turbo/internal/defaults"
	"github.com/neboloop/turbo/internal/ipc"
	"github.com/neboloop/turbo/internal/logging"
)

// ipcAddrFile, in the data dir, holds the desktop's IPC websocket URL while
// the desktop is running.
const ipcAddrFile = "ipc.addr"

var (
	bridgeEnv string
	bridgeAPI string
	bridgeIPC string
)

// BridgeCmd exercises the capability bridge from the command line. The
// environment comes from TURBO_UI / TURBO_DESKTOP_HOST unless --env is given.
func BridgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Call desktop capabilities through the bridge",
		Long: `Call desktop capabilities the way the UI does.

In desktop-host mode calls go to the running desktop over its IPC socket.
In browser mode file calls go to the REST API and the rest degrade.
In headless mode every call fails.`,
	}
	cmd.PersistentFlags().StringVar(&bridgeEnv, "env", "", "environment: desktop-host, browser or headless (default: detect)")
	cmd.PersistentFlags().StringVar(&bridgeAPI, "api", "", "REST API base URL (default: $TURBO_API_URL or http://localhost:3001)")
	cmd.PersistentFlags().StringVar(&bridgeIPC, "ipc", "", "desktop IPC URL (default: the running desktop's)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "env",
			Short: "Print the detected environment",
			RunE: withBridge(func(ctx context.Context, b *bridge.Bridge, args []string) error {
				fmt.Println(b.Environment())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "read <path>",
			Short: "Print a text file",
			Args:  cobra.ExactArgs(1),
			RunE: withBridge(func(ctx context.Context, b *bridge.Bridge, args []string) error {
				content, err := b.ReadFile(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Print(content)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "write <path> [content]",
			Short: "Write a text file (content from stdin when omitted)",
			Args:  cobra.RangeArgs(1, 2),
			RunE: withBridge(func(ctx context.Context, b *bridge.Bridge, args []string) error {
				var content string
				if len(args) == 2 {
					content = args[1]
				} else {
					data, err := io.ReadAll(os.Stdin)
					if err != nil {
						return err
					}
					content = string(data)
				}
				return b.WriteFile(ctx, args[0], content)
			}),
		},
		&cobra.Command{
			Use:   "exists <path>",
			Short: "Report whether a file exists",
			Args:  cobra.ExactArgs(1),
			RunE: withBridge(func(ctx context.Context, b *bridge.Bridge, args []string) error {
				ok, err := b.FileExists(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Println(ok)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "info",
			Short: "Print app name, version and platform",
			RunE: withBridge(func(ctx context.Context, b *bridge.Bridge, args []string) error {
				info, err := b.GetAppInfo(ctx)
				if err != nil {
					return err
				}
				return printJSON(info)
			}),
		},
		&cobra.Command{
			Use:       "path <name>",
			Short:     "Print a system path (home, appData, userData, documents, downloads, desktop)",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"home", "appData", "userData", "documents", "downloads", "desktop"},
			RunE: withBridge(func(ctx context.Context, b *bridge.Bridge, args []string) error {
				name, err := bridge.ParsePathName(args[0])
				if err != nil {
					return err
				}
				p, err := b.GetPath(ctx, name)
				if err != nil {
					return err
				}
				fmt.Println(p)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "check-updates",
			Short: "Check for updates and print status changes until interrupted",
			RunE: withBridge(func(ctx context.Context, b *bridge.Bridge, args []string) error {
				unsubscribe := b.SubscribeUpdateStatus(printStatus)
				defer unsubscribe()
				if err := b.CheckForUpdates(ctx); err != nil {
					return err
				}
				<-ctx.Done()
				return nil
			}),
		},
		&cobra.Command{
			Use:   "watch-updates",
			Short: "Print update status changes until interrupted",
			RunE: withBridge(func(ctx context.Context, b *bridge.Bridge, args []string) error {
				unsubscribe := b.SubscribeUpdateStatus(printStatus)
				defer unsubscribe()
				<-ctx.Done()
				return nil
			}),
		},
		usersCmd(),
	)
	return cmd
}

// usersCmd pages through the dummy dataset on the REST API.
func usersCmd() *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Print one page of the dummy dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bridge.NewRemote(apiURL(), nil).Users(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 100, "rows per page (max 1000)")
	return cmd
}

// withBridge builds the bridge from the flags, runs fn and releases the IPC
// connection afterwards.
func withBridge(fn func(ctx context.Context, b *bridge.Bridge, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := []bridge.Option{
			bridge.WithRemote(bridge.NewRemote(apiURL(), nil)),
			bridge.WithLogger(logging.Logger()),
			bridge.WithAppInfo(bridge.AppInfo{Name: ServerConfig.App.Name, Version: ServerConfig.App.Version}),
		}

		detector := bridge.Detector(bridge.EnvDetector{})
		if bridgeEnv != "" {
			env, err := bridge.ParseEnvironment(bridgeEnv)
			if err != nil {
				return err
			}
			detector = bridge.Static(env)
		}
		opts = append(opts, bridge.WithDetector(detector))

		if detector.Detect() == bridge.EnvDesktopHost {
			client, err := dialDesktop(ctx)
			if err != nil {
				return err
			}
			defer client.Disconnect()
			opts = append(opts, bridge.WithHost(client))
		}

		return fn(ctx, bridge.New(opts...), args)
	}
}

// dialDesktop connects to --ipc, or to the address the running desktop left
// in the data dir.
func dialDesktop(ctx context.Context) (*ipc.Client, error) {
	addr := bridgeIPC
	if addr == "" {
		dir, err := defaults.DataDir()
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(dir, ipcAddrFile))
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.New("turbo desktop is not running (no " + ipcAddrFile + " in the data directory); pass --ipc")
		}
		if err != nil {
			return nil, err
		}
		addr = strings.TrimSpace(string(data))
	}
	return ipc.Dial(ctx, ipc.WebSocketURL(addr), logging.Logger())
}

func apiURL() string {
	if bridgeAPI != "" {
		return bridgeAPI
	}
	return defaults.APIBaseURL()
}

func printStatus(s bridge.UpdateStatus) {
	if err := printJSON(s); err != nil {
		logging.Warnf("print status: %v", err)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
