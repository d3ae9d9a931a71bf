package shell

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/zerr"
)

// waitDelay bounds how long Run waits for output pipes after the child was killed.
const waitDelay = 2 * time.Second

// Runner implements ports.ProcessRunner with plain pipes so stdout and stderr
// stay separate. The child sees exactly spec.Env.
type Runner struct{}

// NewRunner creates a new Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// signalExitBase is added to the signal number of a child killed by a signal,
// the same code a POSIX shell reports.
const signalExitBase = 128

// Run starts one child process and waits for it. A non-zero exit is reported
// through the exit code with a nil error; only a failure to spawn is an error.
// A child killed by a signal reports 128 plus the signal number.
func (r *Runner) Run(ctx context.Context, spec domain.ProcessSpec) (int, error) {
	if len(spec.Command) == 0 {
		return domain.ExitCodeSpawnFailed, domain.ErrInvalidTestCommand
	}

	name := spec.Command[0]
	executable := name
	switch {
	case filepath.IsAbs(name):
	case isPathLike(name):
		// Relative paths are resolved against the child's directory, not ours.
		executable = filepath.Join(spec.Dir, name)
	default:
		if lp, err := lookPath(name, spec.Env); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, spec.Command[1:]...) //nolint:gosec // user provided command
	cmd.Args[0] = name
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	if cmd.Env == nil {
		cmd.Env = []string{}
	}
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return domain.ExitCodeSpawnFailed, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrProcessStartFailed, err.Error()), "command", name),
			"dir", spec.Dir,
		)
	}

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return processExitCode(exitErr.ProcessState), nil
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		return processExitCode(cmd.ProcessState), nil
	}
	return domain.ExitCodeSpawnFailed, zerr.With(zerr.Wrap(err, "wait for process"), "command", name)
}

// processExitCode is the exit code of a terminated process. Signalled
// processes, which os.ProcessState reports as -1, map to 128+signal.
func processExitCode(state *os.ProcessState) int {
	if state == nil {
		return domain.ExitCodeSpawnFailed
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return signalExitBase + int(ws.Signal())
	}
	return state.ExitCode()
}
