// Package defaults holds the application identity constants and the data
// directory layout. Default files are copied to the data directory on first
// run.
//
// Platform paths:
//
//	macOS:   ~/Library/Application Support/Turbo/
//	Windows: %AppData%\Turbo\
//	Linux:   ~/.config/turbo/
//
// Override with TURBO_DATA_DIR environment variable.
package defaults

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const (
	AppName = "Turbo App"
	APIPort = 3001
	WebPort = 3000
)

// AppVersion is set at link time with -ldflags "-X".
var AppVersion = "0.0.1"

// APIBaseURL returns the REST service base URL, honouring TURBO_API_URL.
func APIBaseURL() string {
	if u := os.Getenv("TURBO_API_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:" + strconv.Itoa(APIPort)
}

//go:embed dotturbo/*
var defaultFiles embed.FS

// DataDir returns the platform-appropriate data directory.
// Set TURBO_DATA_DIR to override.
func DataDir() (string, error) {
	if dir := os.Getenv("TURBO_DATA_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}

	// Linux: lowercase per XDG convention
	if runtime.GOOS == "linux" {
		return filepath.Join(configDir, "turbo"), nil
	}
	return filepath.Join(configDir, "Turbo"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist
// and copies default files if they're missing.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := copyDefaults(dir, false); err != nil {
		return "", err
	}
	return dir, nil
}

// Reset replaces the default files in dir with the embedded versions.
func Reset(dir string) error {
	return copyDefaults(dir, true)
}

func copyDefaults(dir string, overwrite bool) error {
	return fs.WalkDir(defaultFiles, "dotturbo", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "dotturbo" {
			return nil
		}

		// embed.FS always uses forward slashes
		relPath := strings.TrimPrefix(path, "dotturbo/")
		destPath := filepath.Join(dir, relPath)

		if d.IsDir() {
			return os.MkdirAll(destPath, 0755)
		}
		if !overwrite {
			if _, err := os.Stat(destPath); err == nil {
				return nil
			}
		}

		data, err := defaultFiles.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded %s: %w", path, err)
		}
		if err := os.WriteFile(destPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", destPath, err)
		}
		return nil
	})
}

// GetDefault returns the content of a default file by name.
// Example: GetDefault("config.yaml")
func GetDefault(name string) ([]byte, error) {
	return defaultFiles.ReadFile("dotturbo/" + name)
}

// ListDefaults returns the names of all default files.
func ListDefaults() ([]string, error) {
	var files []string
	err := fs.WalkDir(defaultFiles, "dotturbo", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, strings.TrimPrefix(path, "dotturbo/"))
		}
		return nil
	})
	return files, err
}
