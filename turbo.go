package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	cli "github.com/neboloop/turbo/cmd/turbo"
	"github.com/neboloop/turbo/internal/config"
)

//go:embed etc/turbo.yaml
var embeddedConfig []byte

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load embedded config (defaults); the user's overlay is applied per command
	c, err := config.LoadFromBytes(embeddedConfig)
	if err != nil {
		fmt.Printf("Failed to load embedded config: %v\n", err)
		os.Exit(1)
	}

	// Pass config to CLI and execute
	if err := cli.SetupRootCmd(&c, embeddedConfig).Execute(); err != nil {
		os.Exit(1)
	}
}
