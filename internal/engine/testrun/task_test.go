package testrun_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/proof/internal/engine/testrun"
	"go.uber.org/mock/gomock"
)

func attached(t *testing.T, opts testrun.Options) sessionFixture {
	t.Helper()
	f := newSession(t, opts)
	require.NoError(t, f.session.Attach(sampleGraph(t)))
	return f
}

func TestTask_Pass(t *testing.T) {
	f := attached(t, testrun.Options{})
	f.runner.run = exits(0, "ok 1 - add\n", "")

	var console bytes.Buffer
	require.NoError(t, f.session.RunTest(t.Context(), testNode("calc"), &console))

	spec := f.runner.lastSpec(t)
	assert.Equal(t, []string{"/work/build/bin/calc"}, spec.Command)
	assert.Equal(t, "/work/build/bin", spec.Dir)
	assert.Contains(t, spec.Env, "LD_LIBRARY_PATH=/work/build/lib:/work/build/bin:")
	assert.Contains(t, spec.Env, "HOME=/home/dev")

	line := console.String()
	assert.True(t, strings.HasPrefix(line, "build/bin/calc "))
	assert.True(t, strings.HasSuffix(line, " ✓\n"))
	assert.Len(t, []rune(strings.TrimSuffix(line, "\n")), 62)

	summary := f.session.Results().Summarize()
	require.Len(t, summary.Records, 1)
	rec := summary.Records[0]
	assert.Equal(t, "build/bin/calc", rec.Name)
	assert.Equal(t, 0, rec.ExitCode)
	assert.Equal(t, "ok 1 - add\n", string(rec.Stdout))
}

func TestTask_OverridesCommandAndWorkingDir(t *testing.T) {
	f := attached(t, testrun.Options{})

	require.NoError(t, f.session.RunTest(t.Context(), testNode("geom"), nil))

	spec := f.runner.lastSpec(t)
	assert.Equal(t, []string{"/usr/bin/env", "geom", "--all"}, spec.Command)
	assert.Equal(t, "/work/fixtures", spec.Dir)
}

func TestTask_StrictFailure(t *testing.T) {
	f := attached(t, testrun.Options{})
	f.runner.run = exits(1, "", "boom\n")

	var logged error
	f.logger.EXPECT().Error(gomock.Any()).Do(func(err error) { logged = err })

	task, ok := f.session.Task(domain.NewInternedString("calc#test"))
	require.True(t, ok)

	outcome, err := task.Execute(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, outcome.Status)
	assert.Equal(t, 1, outcome.Record.ExitCode)
	assert.Contains(t, outcome.Message, "test build/bin/calc failed (exit code 1)")
	assert.Contains(t, outcome.Message, "stderr:\nboom")
	assert.NotContains(t, outcome.Message, "stdout:")

	require.Error(t, logged)
	assert.ErrorIs(t, logged, domain.ErrTestFailed)
}

func TestTask_StrictFailureFailsNode(t *testing.T) {
	f := attached(t, testrun.Options{})
	f.runner.run = exits(1, "", "boom")
	f.logger.EXPECT().Error(gomock.Any())

	err := f.session.RunTest(t.Context(), testNode("calc"), nil)
	assert.ErrorIs(t, err, domain.ErrTestFailed)
	assert.Equal(t, 1, f.session.Results().Summarize().Failed)
}

func TestTask_PermissiveFailure(t *testing.T) {
	f := attached(t, testrun.Options{Permissive: true})
	f.runner.run = exits(1, "partial\n", "boom\n")

	var warning string
	f.logger.EXPECT().Warn(gomock.Any()).Do(func(msg string) { warning = msg })

	task, _ := f.session.Task(domain.NewInternedString("calc#test"))
	outcome, err := task.Execute(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTolerated, outcome.Status)
	assert.Contains(t, warning, "stdout:\npartial")
	assert.Contains(t, warning, "stderr:\nboom")

	assert.Equal(t, 1, f.session.Results().Summarize().Failed)
}

func TestTask_PermissiveFailureDoesNotFailNode(t *testing.T) {
	f := attached(t, testrun.Options{Permissive: true})
	f.runner.run = exits(3, "", "")
	f.logger.EXPECT().Warn(gomock.Any())

	assert.NoError(t, f.session.RunTest(t.Context(), testNode("calc"), nil))
}

func TestTask_InvalidUTF8IsReplaced(t *testing.T) {
	f := attached(t, testrun.Options{Permissive: true})
	f.runner.run = exits(1, "", "bad \xff byte")
	f.logger.EXPECT().Warn(gomock.Any())

	task, _ := f.session.Task(domain.NewInternedString("calc#test"))
	outcome, err := task.Execute(t.Context(), nil)
	require.NoError(t, err)
	assert.Contains(t, outcome.Message, "bad � byte")
}

func TestTask_TestCmdWrapsCommand(t *testing.T) {
	f := newSession(t, testrun.Options{TestCmd: "valgrind --error-exitcode=1 %s"})
	g := domain.NewGraph()
	g.SetRoot(root)
	addTask(t, g, domain.Task{
		Name: domain.NewInternedString("app2"),
		Link: domain.NewInternedString("build/app2"),
		Test: &domain.TestSpec{Command: []string{"./app2"}},
	})
	require.NoError(t, f.session.Attach(g))

	require.NoError(t, f.session.RunTest(t.Context(), testNode("app2"), nil))
	assert.Equal(t, []string{"valgrind", "--error-exitcode=1", "./app2"}, f.runner.lastSpec(t).Command)
}

func TestTask_SpawnFailure(t *testing.T) {
	f := attached(t, testrun.Options{Permissive: true})
	f.runner.run = func(context.Context, domain.ProcessSpec) (int, error) {
		return -1, domain.ErrProcessStartFailed
	}

	err := f.session.RunTest(t.Context(), testNode("calc"), nil)
	assert.ErrorIs(t, err, domain.ErrProcessStartFailed, "spawn failures are fatal even when permissive")

	summary := f.session.Results().Summarize()
	require.Len(t, summary.Records, 1)
	assert.Equal(t, domain.ExitCodeSpawnFailed, summary.Records[0].ExitCode)
	assert.True(t, summary.Records[0].NotStarted)
}

func TestTask_Timeout(t *testing.T) {
	f := attached(t, testrun.Options{Timeout: 10 * time.Millisecond})
	f.runner.run = func(ctx context.Context, _ domain.ProcessSpec) (int, error) {
		<-ctx.Done()
		return -1, nil
	}

	var logged error
	f.logger.EXPECT().Error(gomock.Any()).Do(func(err error) { logged = err })

	err := f.session.RunTest(t.Context(), testNode("calc"), nil)
	assert.ErrorIs(t, err, domain.ErrTestFailed)
	require.Error(t, logged)
	assert.Contains(t, logged.Error(), "killed after 10ms")
}

func TestTask_UnknownNode(t *testing.T) {
	f := attached(t, testrun.Options{})

	err := f.session.RunTest(t.Context(), testNode("libmath"), nil)
	assert.True(t, errors.Is(err, domain.ErrTaskNotFound))
}
