package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/neboloop/turbo/internal/defaults"
	"github.com/neboloop/turbo/internal/keyring"
)

// ConfigCmd shows and resets the user configuration.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or reset configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the user config file path",
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configPath()
				if err != nil {
					return err
				}
				fmt.Println(path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(ServerConfig)
			},
		},
		tokenCmd(),
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the default files in the data directory",
			RunE: func(cmd *cobra.Command, args []string) error {
				dir, err := defaults.EnsureDataDir()
				if err != nil {
					return err
				}
				if err := defaults.Reset(dir); err != nil {
					return err
				}
				fmt.Printf("Defaults restored in %s\n", dir)
				return nil
			},
		},
	)
	return cmd
}

// tokenCmd manages the GitHub token used for release lookups.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the GitHub token used for update checks",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <token>",
			Short: "Store the token in the OS keychain",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := keyring.SetToken(args[0]); err != nil {
					return err
				}
				fmt.Println("Token stored.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the stored token",
			RunE: func(cmd *cobra.Command, args []string) error {
				return keyring.DeleteToken()
			},
		},
	)
	return cmd
}
