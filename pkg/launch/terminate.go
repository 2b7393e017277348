package launch

import (
	"context"
	"syscall"
	"time"

	"github.com/go-go-golems/ragup/pkg/state"
	"github.com/pkg/errors"
)

// TerminateGroup sends SIGTERM to the process group of pid, escalating
// to SIGKILL after timeout. The supervisor itself never calls this;
// launched children are fire-and-forget. It exists for the `down`
// command, which works from the recorded state file.
func TerminateGroup(ctx context.Context, pid int, timeout time.Duration) error {
	if pid <= 0 {
		return nil
	}
	pgid, err := syscall.Getpgid(pid)
	if err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGTERM)
	} else {
		_ = syscall.Kill(pid, syscall.SIGTERM)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()

	termDeadline := time.Now().Add(timeout)
	for {
		if !state.ProcessAlive(pid) {
			return nil
		}
		if time.Now().After(termDeadline) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	if err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	} else {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}

	killDeadline := time.Now().Add(2 * time.Second)
	for state.ProcessAlive(pid) && time.Now().Before(killDeadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	if state.ProcessAlive(pid) {
		return errors.Errorf("pid %d did not exit", pid)
	}
	return nil
}
