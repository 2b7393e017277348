package launch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// LogsDir receives one stdout and one stderr file per launched
	// child. Created on first launch.
	LogsDir string
	// InterLaunchDelay is the minimum wall-clock gap between the start
	// of consecutive launches in Run.
	InterLaunchDelay time.Duration
	// ReadyTimeout bounds per-spec readiness polls that don't carry
	// their own timeout.
	ReadyTimeout time.Duration
}

// Supervisor turns an ordered sequence of Specs into running, detached
// processes. It does not track children after spawn; their lifetime is
// delegated entirely to the operating system.
type Supervisor struct {
	opts Options
}

func New(opts Options) *Supervisor {
	if opts.InterLaunchDelay <= 0 {
		opts.InterLaunchDelay = 3 * time.Second
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 30 * time.Second
	}
	return &Supervisor{opts: opts}
}

// Launch starts spec's process detached from the supervisor's own
// lifetime. On failure the returned Result carries StatusFailed and the
// same error that is returned.
func (s *Supervisor) Launch(ctx context.Context, spec Spec) (Result, error) {
	res := Result{Label: spec.Label, Status: StatusFailed}

	if spec.Label == "" {
		err := errors.New("spec label is required")
		return fail(res, err), err
	}
	if len(spec.Command) == 0 {
		err := errors.Errorf("spec %q missing command", spec.Label)
		return fail(res, err), err
	}

	info, statErr := os.Stat(spec.Dir)
	if statErr != nil || !info.IsDir() {
		err := &PreconditionError{Label: spec.Label, Path: spec.Dir}
		return fail(res, err), err
	}

	if len(spec.Setup) > 0 {
		if err := s.runSetup(ctx, spec); err != nil {
			lerr := &LaunchError{Label: spec.Label, Err: err}
			return fail(res, lerr), lerr
		}
	}

	if s.opts.LogsDir != "" {
		if err := os.MkdirAll(s.opts.LogsDir, 0o755); err != nil {
			err = errors.Wrap(err, "mkdir logs dir")
			return fail(res, err), err
		}
	}

	ts := time.Now().Format("20060102-150405")
	stdoutPath := filepath.Join(s.opts.LogsDir, spec.Label+"-"+ts+".stdout.log")
	stderrPath := filepath.Join(s.opts.LogsDir, spec.Label+"-"+ts+".stderr.log")

	stdoutFile, err := os.OpenFile(stdoutPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		err = errors.Wrap(err, "open stdout log")
		return fail(res, err), err
	}
	defer func() { _ = stdoutFile.Close() }()

	stderrFile, err := os.OpenFile(stderrPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		err = errors.Wrap(err, "open stderr log")
		return fail(res, err), err
	}
	defer func() { _ = stderrFile.Close() }()

	// Plain exec.Command, not CommandContext: the child must outlive
	// the launcher process.
	// #nosec G204 -- command comes from the resolved stack plan.
	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		lerr := &LaunchError{Label: spec.Label, Err: err}
		return fail(res, lerr), lerr
	}

	pid := cmd.Process.Pid
	log.Info().Str("child", spec.Label).Int("pid", pid).Msg("child started")

	// Reap to avoid a zombie if the child exits while we are alive.
	go func() { _ = cmd.Wait() }()

	return Result{
		Label:     spec.Label,
		Status:    StatusLaunched,
		PID:       pid,
		StdoutLog: stdoutPath,
		StderrLog: stderrPath,
		StartedAt: time.Now(),
	}, nil
}

// Run launches specs strictly in order. After every launch except the
// last it waits at least InterLaunchDelay before proceeding, then polls
// the spec's readiness check if one is set. A critical spec's failure
// aborts the remaining launches; an optional spec's failure is logged
// and the run continues.
func (s *Supervisor) Run(ctx context.Context, specs []Spec) ([]Result, error) {
	results := make([]Result, 0, len(specs))

	for i, spec := range specs {
		res, err := s.Launch(ctx, spec)
		results = append(results, res)

		if err != nil {
			if !spec.Optional {
				return results, err
			}
			log.Warn().Err(err).Str("child", spec.Label).Msg("optional child failed to launch; continuing")
		}

		if i == len(specs)-1 {
			break
		}
		if err := s.pause(ctx, spec); err != nil {
			return results, err
		}
	}

	return results, nil
}

// pause enforces the minimum inter-launch gap, then optionally polls
// the just-launched spec's port. The contract is "wait at least the
// delay", not a literal sleep.
func (s *Supervisor) pause(ctx context.Context, spec Spec) error {
	t := time.NewTimer(s.opts.InterLaunchDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "inter-launch delay")
	case <-t.C:
	}

	if spec.Ready == nil {
		return nil
	}
	timeout := spec.Ready.Timeout
	if timeout <= 0 {
		timeout = s.opts.ReadyTimeout
	}
	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := waitTCP(readyCtx, spec.Ready.Address); err != nil {
		return errors.Wrapf(err, "child %q not ready on %s", spec.Label, spec.Ready.Address)
	}
	return nil
}

func (s *Supervisor) runSetup(ctx context.Context, spec Spec) error {
	// #nosec G204 -- setup command comes from the resolved stack plan.
	cmd := exec.CommandContext(ctx, spec.Setup[0], spec.Setup[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "setup step: %s", string(out))
	}
	log.Debug().Str("child", spec.Label).Msg("setup step completed")
	return nil
}

func fail(res Result, err error) Result {
	res.Status = StatusFailed
	res.Err = err
	res.Error = err.Error()
	return res
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := append([]string{}, base...)
	for k, v := range extra {
		out = append(out, k+"="+v)
	}
	return out
}
