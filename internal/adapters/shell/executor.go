// Package shell runs build task commands and test binaries as child processes.
package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/zerr"
)

// Process represents a running command.
type Process interface {
	Wait() error
}

type ptyProcess struct {
	cmd    *exec.Cmd
	ioDone <-chan struct{}
}

func (p *ptyProcess) Wait() error {
	err := p.cmd.Wait()

	// The copy loop closes the pty master once the child side is gone.
	<-p.ioDone

	return err
}

// Executor implements ports.Executor for build tasks. Commands run inside a
// pseudo terminal so compilers keep their colored diagnostics.
type Executor struct{}

// NewExecutor creates a new Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Start launches the task's command in a PTY.
// It returns a nil Process for tasks without a command.
func (e *Executor) Start(
	ctx context.Context,
	task *domain.Task,
	env []string,
	stdout io.Writer,
) (Process, error) {
	if len(task.Command) == 0 {
		return nil, nil
	}

	name := task.Command[0]
	args := task.Command[1:]

	cmdEnv := resolveEnvironment(os.Environ(), env, task.Environment)

	executable := name
	if !isPathLike(name) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, args...) //nolint:gosec // user provided command
	cmd.Args[0] = name
	cmd.Dir = task.WorkingDir.String()
	cmd.Env = cmdEnv

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to start pty"), "command", name)
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		defer func() { _ = ptmx.Close() }()
		// The PTY merges stdout and stderr into a single stream.
		_, _ = io.Copy(stdout, ptmx)
	}()

	return &ptyProcess{
		cmd:    cmd,
		ioDone: ioDone,
	}, nil
}

// Execute runs the task's command and waits for it to complete.
func (e *Executor) Execute(ctx context.Context, task *domain.Task, env []string, stdout, _ io.Writer) error {
	proc, err := e.Start(ctx, task, env, stdout)
	if err != nil {
		return err
	}
	if proc == nil {
		return nil
	}

	if span, ok := stdout.(interface{ MarkExecStart() }); ok {
		span.MarkExecStart()
	}

	if err := proc.Wait(); err != nil {
		return zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode(err))
	}

	return nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return processExitCode(exitErr.ProcessState)
	}
	return domain.ExitCodeSpawnFailed
}
