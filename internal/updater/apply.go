package updater

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

var (
	preApplyMu sync.Mutex
	preApply   []func()
)

// OnPreApply registers fn to run right before the process is replaced, e.g.
// to release the single-instance lock.
func OnPreApply(fn func()) {
	preApplyMu.Lock()
	preApply = append(preApply, fn)
	preApplyMu.Unlock()
}

func runPreApply() {
	preApplyMu.Lock()
	fns := preApply
	preApplyMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// healthCheck runs "<binary> version" with a timeout.
func healthCheck(binaryPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, "version")
	cmd.Env = os.Environ()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("updater: health check timed out")
		}
		return fmt.Errorf("updater: health check failed: %w", err)
	}
	return nil
}

// copyFile copies src to dst, preserving permissions.
func copyFile(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
