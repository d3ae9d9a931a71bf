package shell_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/proof/internal/adapters/shell"
	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/zerr"
)

func buildTask(t *testing.T, name string, cmd ...string) *domain.Task {
	t.Helper()
	return &domain.Task{
		Name:       domain.NewInternedString(name),
		Command:    cmd,
		WorkingDir: domain.NewInternedString(t.TempDir()),
	}
}

func TestExecutor_Execute_StreamsMergedOutput(t *testing.T) {
	executor := shell.NewExecutor()
	task := buildTask(t, "libmath", "sh", "-c", "echo compiling math.c; echo 'warning: unused' >&2")

	var stdout bytes.Buffer
	err := executor.Execute(context.Background(), task, nil, &stdout, io.Discard)
	require.NoError(t, err)

	// The PTY merges both streams into stdout.
	assert.Contains(t, stdout.String(), "compiling math.c")
	assert.Contains(t, stdout.String(), "warning: unused")
}

func TestExecutor_Execute_FragmentedOutput(t *testing.T) {
	executor := shell.NewExecutor()
	task := buildTask(t, "calc", "sh", "-c", "printf part1; sleep 0.1; echo part2")

	var stdout bytes.Buffer
	require.NoError(t, executor.Execute(context.Background(), task, nil, &stdout, io.Discard))
	assert.Contains(t, stdout.String(), "part1part2")
}

func TestExecutor_Execute_KeepsANSIColors(t *testing.T) {
	executor := shell.NewExecutor()
	task := buildTask(t, "colored", "sh", "-c", `printf '\033[31merror: nope\033[0m'`)

	var stdout bytes.Buffer
	require.NoError(t, executor.Execute(context.Background(), task, nil, &stdout, io.Discard))
	assert.Contains(t, stdout.String(), "\033[31m")
	assert.Contains(t, stdout.String(), "error: nope")
}

func TestExecutor_Execute_RunsInWorkingDir(t *testing.T) {
	executor := shell.NewExecutor()
	task := buildTask(t, "libmath", "sh", "-c", "mkdir -p build && echo lib > build/libmath.so")

	require.NoError(t, executor.Execute(context.Background(), task, nil, io.Discard, io.Discard))

	data, err := os.ReadFile(filepath.Join(task.WorkingDir.String(), "build", "libmath.so"))
	require.NoError(t, err)
	assert.Equal(t, "lib\n", string(data))
}

func TestExecutor_Execute_Environment(t *testing.T) {
	t.Setenv("PROOF_SECRET_TOKEN", "leaked")

	executor := shell.NewExecutor()
	task := buildTask(t, "env", "sh", "-c", `echo "task=$CFLAGS extra=$EXTRA_VAR secret=$PROOF_SECRET_TOKEN"`)
	task.Environment = map[string]string{"CFLAGS": "-O2"}

	var stdout bytes.Buffer
	err := executor.Execute(context.Background(), task, []string{"EXTRA_VAR=extra-value"}, &stdout, io.Discard)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "task=-O2 extra=extra-value secret=")
	assert.NotContains(t, stdout.String(), "leaked")
}

func TestExecutor_Execute_ExtraPathFindsTool(t *testing.T) {
	executor := shell.NewExecutor()

	toolDir := t.TempDir()
	//nolint:gosec // Test requires executable file
	require.NoError(t, os.WriteFile(filepath.Join(toolDir, "proof-fake-cc"), []byte("#!/bin/sh\necho fake cc\n"), 0o700))

	task := buildTask(t, "tool", "proof-fake-cc")

	var stdout bytes.Buffer
	err := executor.Execute(context.Background(), task, []string{"PATH=" + toolDir}, &stdout, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "fake cc")
}

func TestExecutor_Execute_FailureCarriesExitCode(t *testing.T) {
	executor := shell.NewExecutor()
	task := buildTask(t, "broken", "sh", "-c", "exit 42")

	err := executor.Execute(context.Background(), task, nil, io.Discard, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command failed")

	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, 42, zErr.Metadata()["exit_code"])
}

func TestExecutor_Execute_UnknownCommand(t *testing.T) {
	executor := shell.NewExecutor()
	task := buildTask(t, "missing", "nonexistent-command-xyz123")

	err := executor.Execute(context.Background(), task, nil, io.Discard, io.Discard)
	require.Error(t, err)
}

func TestExecutor_Execute_EmptyCommand(t *testing.T) {
	executor := shell.NewExecutor()
	task := buildTask(t, "group-only")

	require.NoError(t, executor.Execute(context.Background(), task, nil, io.Discard, io.Discard))
}

func TestExecutor_Execute_Cancelled(t *testing.T) {
	executor := shell.NewExecutor()
	task := buildTask(t, "slow", "sh", "-c", "sleep 10")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := executor.Execute(ctx, task, nil, io.Discard, io.Discard)
	require.Error(t, err)
}

type markingWriter struct {
	bytes.Buffer
	marked bool
}

func (m *markingWriter) MarkExecStart() {
	m.marked = true
}

func TestExecutor_Execute_MarksExecStart(t *testing.T) {
	executor := shell.NewExecutor()
	task := buildTask(t, "marked", "sh", "-c", "echo ok")

	w := &markingWriter{}
	require.NoError(t, executor.Execute(context.Background(), task, nil, w, io.Discard))
	assert.True(t, w.marked)
	assert.Contains(t, w.String(), "ok")
}
