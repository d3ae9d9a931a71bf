package testrun_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/proof/internal/core/ports/mocks"
	"go.trai.ch/proof/internal/engine/testrun"
	"go.uber.org/mock/gomock"
)

const root = "/work"

// fakeRunner records every spec and answers with run.
type fakeRunner struct {
	mu    sync.Mutex
	specs []domain.ProcessSpec
	run   func(ctx context.Context, spec domain.ProcessSpec) (int, error)
}

func (f *fakeRunner) Run(ctx context.Context, spec domain.ProcessSpec) (int, error) {
	f.mu.Lock()
	f.specs = append(f.specs, spec)
	f.mu.Unlock()
	if f.run == nil {
		return 0, nil
	}
	return f.run(ctx, spec)
}

func (f *fakeRunner) lastSpec(t *testing.T) domain.ProcessSpec {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.specs)
	return f.specs[len(f.specs)-1]
}

// exits returns a run function that writes stdout and stderr and exits with code.
func exits(code int, stdout, stderr string) func(context.Context, domain.ProcessSpec) (int, error) {
	return func(_ context.Context, spec domain.ProcessSpec) (int, error) {
		_, _ = io.WriteString(spec.Stdout, stdout)
		_, _ = io.WriteString(spec.Stderr, stderr)
		return code, nil
	}
}

func addTask(t *testing.T, g *domain.Graph, task domain.Task) {
	t.Helper()
	require.NoError(t, g.AddTask(&task))
}

// sampleGraph is a library, a stage step and two test programs linking it.
func sampleGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	g.SetRoot(root)

	addTask(t, g, domain.Task{
		Name: domain.NewInternedString("libmath"),
		Link: domain.NewInternedString("build/lib/libmath.so"),
	})
	addTask(t, g, domain.Task{Name: domain.NewInternedString("stage")})
	addTask(t, g, domain.Task{
		Name:         domain.NewInternedString("calc"),
		Dependencies: domain.NewInternedStrings([]string{"libmath"}),
		Link:         domain.NewInternedString("build/bin/calc"),
		Test: &domain.TestSpec{
			After: domain.NewInternedStrings([]string{"stage"}),
		},
	})
	addTask(t, g, domain.Task{
		Name:         domain.NewInternedString("geom"),
		Dependencies: domain.NewInternedStrings([]string{"libmath"}),
		Link:         domain.NewInternedString("build/bin/geom"),
		Test: &domain.TestSpec{
			Command:    []string{"/usr/bin/env", "geom", "--all"},
			WorkingDir: "/work/fixtures",
		},
	})
	return g
}

type sessionFixture struct {
	session *testrun.Session
	runner  *fakeRunner
	logger  *mocks.MockLogger
}

func newSession(t *testing.T, opts testrun.Options, sessionOpts ...testrun.SessionOption) sessionFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	runner := &fakeRunner{}

	sessionOpts = append([]testrun.SessionOption{
		testrun.WithPlatform(domain.PlatformUnix),
		testrun.WithEnviron(func() []string { return []string{"HOME=/home/dev"} }),
		testrun.WithOutput(io.Discard),
	}, sessionOpts...)

	return sessionFixture{
		session: testrun.NewSession(runner, logger, opts, sessionOpts...),
		runner:  runner,
		logger:  logger,
	}
}

func testNode(name string) *domain.Task {
	return &domain.Task{Name: domain.TestNodeName(domain.NewInternedString(name))}
}
