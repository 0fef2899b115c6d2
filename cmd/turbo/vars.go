package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neboloop/turbo/internal/config"
	"github.com/neboloop/turbo/internal/defaults"
	"github.com/neboloop/turbo/internal/logging"
)

// Shared CLI flags (used across multiple command files)
var (
	cfgFile  string
	headless bool
	verbose  bool
)

// ServerConfig holds the loaded server configuration (set by main, then
// re-read with the user's overlay before each command runs)
var ServerConfig *config.Config

// embeddedConfig is the built-in etc/turbo.yaml, kept for reloads.
var embeddedConfig []byte

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(c *config.Config, base []byte) *cobra.Command {
	ServerConfig = c
	embeddedConfig = base

	rootCmd := &cobra.Command{
		Use:   "turbo",
		Short: "Turbo - desktop shell and local REST API",
		Long: `Turbo runs the desktop shell with its local REST API.

Just type 'turbo' to open the desktop window.
Use --headless to run only the REST API (browser-only mode).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if headless {
				return RunAll()
			}
			return RunDesktop()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <data dir>/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	// Root-only flags
	rootCmd.Flags().BoolVar(&headless, "headless", false, "run without native window (REST API only)")

	// Add commands
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(BridgeCmd())
	rootCmd.AddCommand(ConfigCmd())
	rootCmd.AddCommand(VersionCmd())

	return rootCmd
}

// configPath is the user overlay: --config, else config.yaml in the data dir.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	dir, err := defaults.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// loadConfig applies the user overlay on top of the embedded config and
// sets up logging from the result.
func loadConfig() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	c, err := config.Load(embeddedConfig, path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		c.Log.Level = "debug"
	}
	ServerConfig = &c

	return logging.Setup(logging.Options{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		NoColor:    os.Getenv("NO_COLOR") != "",
	})
}
