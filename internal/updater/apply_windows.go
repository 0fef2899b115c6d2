//go:build windows

package updater

import (
	"fmt"
	"os"
	"os/exec"
)

// Apply replaces the current binary with newBinaryPath and restarts.
// A running .exe can be renamed but not overwritten, so the current binary
// moves to .old, the new one is copied into place, and a new process starts.
func Apply(newBinaryPath string) error {
	currentExe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("updater: resolve executable: %w", err)
	}

	if err := healthCheck(newBinaryPath); err != nil {
		return err
	}

	backupPath := currentExe + ".old"
	os.Remove(backupPath)
	if err := os.Rename(currentExe, backupPath); err != nil {
		return fmt.Errorf("updater: rename current exe: %w", err)
	}

	// Copy, not rename: the temp dir may be on another volume
	if err := copyFile(newBinaryPath, currentExe); err != nil {
		_ = os.Rename(backupPath, currentExe)
		return fmt.Errorf("updater: copy new binary: %w", err)
	}
	os.Remove(newBinaryPath)

	runPreApply()

	newCmd := exec.Command(currentExe, os.Args[1:]...)
	newCmd.Stdout = os.Stdout
	newCmd.Stderr = os.Stderr
	if err := newCmd.Start(); err != nil {
		return fmt.Errorf("updater: start new process: %w", err)
	}

	os.Exit(0)
	return nil
}
