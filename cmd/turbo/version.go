package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/neboloop/turbo/internal/updater"
)

// VersionCmd prints the build version.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s (%s/%s, %s)\n", ServerConfig.App.Name, ServerConfig.App.Version,
				runtime.GOOS, runtime.GOARCH, updater.AssetName(runtime.GOOS, runtime.GOARCH))
		},
	}
}
