//go:build !windows

package updater

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Apply replaces the current binary with newBinaryPath and execs into it.
// On unix the running binary can be replaced while the process is active.
func Apply(newBinaryPath string) error {
	currentExe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("updater: resolve executable: %w", err)
	}
	realPath, err := filepath.EvalSymlinks(currentExe)
	if err != nil {
		return fmt.Errorf("updater: resolve symlinks: %w", err)
	}

	if err := healthCheck(newBinaryPath); err != nil {
		return err
	}

	backupPath := realPath + ".old"
	if err := copyFile(realPath, backupPath); err != nil {
		return fmt.Errorf("updater: backup current binary: %w", err)
	}
	if err := copyFile(newBinaryPath, realPath); err != nil {
		_ = copyFile(backupPath, realPath)
		return fmt.Errorf("updater: replace binary: %w", err)
	}
	os.Remove(newBinaryPath)

	runPreApply()

	// Replaces this process in-place
	return syscall.Exec(realPath, os.Args, os.Environ())
}
