package testrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/zerr"
)

// passLineWidth is the column the pass mark is aligned to.
const passLineWidth = 60

// PostHook is called with the task right before it runs. It may rewrite Command.
type PostHook func(*Task)

// Task runs one linked test executable.
type Task struct {
	// Name is the graph node the task belongs to.
	Name domain.InternedString
	// Display is the artifact path shown in output and records.
	Display string
	// Artifact is the absolute path of the test executable.
	Artifact string
	// Command overrides the argv. Nil runs Artifact directly.
	Command []string
	// WorkingDir overrides the directory the test runs in.
	WorkingDir string
	PostHook   PostHook

	session *Session
}

func (t *Task) command() []string {
	if t.Command != nil {
		return slices.Clone(t.Command)
	}
	return []string{t.Artifact}
}

func (t *Task) dir() string {
	if t.WorkingDir != "" {
		return t.WorkingDir
	}
	return filepath.Dir(t.Artifact)
}

// Execute runs the test binary once and records the result.
//
// A binary that ran yields an outcome and a nil error, whatever its exit
// code. The error is non-nil only when the process could not be started; a
// NotStarted record is written in that case too.
func (t *Task) Execute(ctx context.Context, console io.Writer) (domain.TestOutcome, error) {
	if console == nil {
		console = io.Discard
	}
	s := t.session

	if t.PostHook != nil {
		t.PostHook(t)
	}
	cmd := t.command()
	if s.opts.TestCmd != "" && len(cmd) > 0 {
		cmd = strings.Fields(fmt.Sprintf(s.opts.TestCmd, cmd[0]))
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	start := time.Now()
	code, err := s.runner.Run(ctx, domain.ProcessSpec{
		Command: cmd,
		Dir:     t.dir(),
		Env:     s.Environment().Vars,
		Stdout:  &stdout,
		Stderr:  &stderr,
	})

	rec := domain.TestRecord{
		Name:     t.Display,
		ExitCode: code,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		rec.ExitCode = domain.ExitCodeSpawnFailed
		rec.NotStarted = true
		s.results.Record(rec)
		return domain.TestOutcome{Status: domain.StatusFailed, Record: rec},
			zerr.With(zerr.Wrap(err, "run test"), "test", t.Display)
	}
	s.results.Record(rec)

	if rec.Passed() {
		_, _ = fmt.Fprintf(console, "%-*s ✓\n", passLineWidth, t.Display)
		return domain.TestOutcome{Status: domain.StatusPassed, Record: rec}, nil
	}

	msg := failureMessage(rec, errors.Is(ctx.Err(), context.DeadlineExceeded), s.opts.Timeout)
	if s.opts.Permissive {
		s.logger.Warn(msg)
		return domain.TestOutcome{Status: domain.StatusTolerated, Record: rec, Message: msg}, nil
	}

	s.logger.Error(zerr.With(zerr.Wrap(domain.ErrTestFailed, msg), "exit_code", rec.ExitCode))
	return domain.TestOutcome{Status: domain.StatusFailed, Record: rec, Message: msg}, nil
}

// failureMessage formats the message for a test that exited non-zero.
func failureMessage(rec domain.TestRecord, timedOut bool, timeout time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "test %s failed (exit code %d)", rec.Name, rec.ExitCode)
	if timedOut {
		fmt.Fprintf(&b, ", killed after %s", timeout)
	}
	if len(rec.Stdout) > 0 {
		b.WriteString("\nstdout:\n")
		b.WriteString(strings.ToValidUTF8(string(rec.Stdout), "�"))
	}
	if len(rec.Stderr) > 0 {
		b.WriteString("\nstderr:\n")
		b.WriteString(strings.ToValidUTF8(string(rec.Stderr), "�"))
	}
	return strings.TrimRight(b.String(), "\n")
}
