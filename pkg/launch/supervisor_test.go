package launch

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-go-golems/ragup/pkg/state"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func testSupervisor(t *testing.T, delay time.Duration) (*Supervisor, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(Options{
		LogsDir:          filepath.Join(dir, "logs"),
		InterLaunchDelay: delay,
		ReadyTimeout:     2 * time.Second,
	})
	return s, dir
}

func TestLaunch_MissingDirIsPreconditionError(t *testing.T) {
	s, dir := testSupervisor(t, 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := s.Launch(ctx, Spec{
		Label:   "ghost",
		Dir:     filepath.Join(dir, "does-not-exist"),
		Command: []string{"bash", "-lc", "true"},
	})
	require.Error(t, err)

	var pre *PreconditionError
	require.True(t, errors.As(err, &pre))
	require.Equal(t, "ghost", pre.Label)
	require.Equal(t, StatusFailed, res.Status)
	require.Zero(t, res.PID)
}

func TestLaunch_DetachedChildAndTerminate(t *testing.T) {
	s, dir := testSupervisor(t, 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := s.Launch(ctx, Spec{
		Label:   "sleeper",
		Dir:     dir,
		Command: []string{"bash", "-lc", "sleep 10"},
	})
	require.NoError(t, err)
	require.Equal(t, StatusLaunched, res.Status)
	require.True(t, state.ProcessAlive(res.PID))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, TerminateGroup(stopCtx, res.PID, 2*time.Second))

	deadline := time.Now().Add(3 * time.Second)
	for state.ProcessAlive(res.PID) && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	require.False(t, state.ProcessAlive(res.PID))
}

func TestLaunch_EnvIsMergedOverInherited(t *testing.T) {
	s, dir := testSupervisor(t, 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outPath := filepath.Join(dir, "out.txt")
	_, err := s.Launch(ctx, Spec{
		Label:   "envcheck",
		Dir:     dir,
		Env:     map[string]string{"RAGUP_TEST_VALUE": "hello"},
		Command: []string{"bash", "-lc", "echo -n \"$RAGUP_TEST_VALUE\" > out.txt"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		b, err := os.ReadFile(outPath)
		return err == nil && string(b) == "hello"
	}, 3*time.Second, 50*time.Millisecond)
}

func TestLaunch_SetupRunsBeforeCommand(t *testing.T) {
	s, dir := testSupervisor(t, 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := s.Launch(ctx, Spec{
		Label:   "withsetup",
		Dir:     dir,
		Setup:   []string{"bash", "-lc", "echo registered > setup.txt"},
		Command: []string{"bash", "-lc", "true"},
	})
	require.NoError(t, err)
	require.Equal(t, StatusLaunched, res.Status)

	// Setup is synchronous, so the marker exists before Launch returns.
	_, err = os.Stat(filepath.Join(dir, "setup.txt"))
	require.NoError(t, err)
}

func TestLaunch_SetupFailureIsLaunchError(t *testing.T) {
	s, dir := testSupervisor(t, 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := s.Launch(ctx, Spec{
		Label:   "badsetup",
		Dir:     dir,
		Setup:   []string{"bash", "-lc", "exit 3"},
		Command: []string{"bash", "-lc", "true"},
	})
	require.Error(t, err)

	var lerr *LaunchError
	require.True(t, errors.As(err, &lerr))
	require.Equal(t, StatusFailed, res.Status)
}

func TestRun_OrderAndInterLaunchDelay(t *testing.T) {
	delay := 300 * time.Millisecond
	s, dir := testSupervisor(t, delay)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := s.Run(ctx, []Spec{
		{Label: "first", Dir: dir, Command: []string{"bash", "-lc", "true"}},
		{Label: "second", Dir: dir, Command: []string{"bash", "-lc", "true"}},
		{Label: "third", Dir: dir, Command: []string{"bash", "-lc", "true"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, []string{"first", "second", "third"},
		[]string{results[0].Label, results[1].Label, results[2].Label})

	for i := 1; i < len(results); i++ {
		gap := results[i].StartedAt.Sub(results[i-1].StartedAt)
		require.GreaterOrEqual(t, gap, delay, "gap between launch %d and %d", i-1, i)
	}
}

func TestRun_OptionalFailureDoesNotAbort(t *testing.T) {
	s, dir := testSupervisor(t, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := s.Run(ctx, []Spec{
		{Label: "broken", Dir: dir, Command: []string{"/nonexistent/binary"}, Optional: true},
		{Label: "ok", Dir: dir, Command: []string{"bash", "-lc", "true"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, StatusFailed, results[0].Status)
	require.NotEmpty(t, results[0].Error)
	require.Equal(t, StatusLaunched, results[1].Status)
}

func TestRun_CriticalFailureAbortsRemaining(t *testing.T) {
	s, dir := testSupervisor(t, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	marker := filepath.Join(dir, "never.txt")
	results, err := s.Run(ctx, []Spec{
		{Label: "broken", Dir: dir, Command: []string{"/nonexistent/binary"}},
		{Label: "skipped", Dir: dir, Command: []string{"bash", "-lc", "touch never.txt"}},
	})
	require.Error(t, err)

	var lerr *LaunchError
	require.True(t, errors.As(err, &lerr))
	require.Len(t, results, 1)
	require.Equal(t, StatusFailed, results[0].Status)

	time.Sleep(200 * time.Millisecond)
	_, statErr := os.Stat(marker)
	require.True(t, os.IsNotExist(statErr))
}

func TestRun_ReadyProbeSucceedsAgainstListener(t *testing.T) {
	s, dir := testSupervisor(t, 50*time.Millisecond)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := s.Run(ctx, []Spec{
		{
			Label:   "listening",
			Dir:     dir,
			Command: []string{"bash", "-lc", "true"},
			Ready:   &ReadyCheck{Address: ln.Addr().String(), Timeout: 2 * time.Second},
		},
		{Label: "after", Dir: dir, Command: []string{"bash", "-lc", "true"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestRun_ReadyProbeTimeoutFailsRun(t *testing.T) {
	s, dir := testSupervisor(t, 50*time.Millisecond)

	// Reserve a port that will not become ready.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := s.Run(ctx, []Spec{
		{
			Label:   "neverup",
			Dir:     dir,
			Command: []string{"bash", "-lc", "true"},
			Ready:   &ReadyCheck{Address: addr, Timeout: 300 * time.Millisecond},
		},
		{Label: "after", Dir: dir, Command: []string{"bash", "-lc", "true"}},
	})
	require.Error(t, err)
	require.Len(t, results, 1)
}
