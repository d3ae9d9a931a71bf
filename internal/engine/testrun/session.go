// Package testrun runs the test binaries produced by the build graph and
// reports their results once the graph has completed.
package testrun

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/proof/internal/core/ports"
	"go.trai.ch/zerr"
)

// Session is the state shared by the test nodes of one invocation.
// Create it with NewSession and add its test nodes to a graph with Attach.
type Session struct {
	id       string
	opts     Options
	runner   ports.ProcessRunner
	logger   ports.Logger
	out      io.Writer
	platform domain.Platform
	environ  func() []string
	now      func() time.Time
	started  time.Time

	graph       *domain.Graph
	tasks       map[domain.InternedString]*Task
	environment func() *domain.EnvSnapshot
	results     Results
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithOutput sets the writer the report is printed to.
func WithOutput(w io.Writer) SessionOption {
	return func(s *Session) {
		s.out = w
	}
}

// WithPlatform overrides the platform used to pick the library search variables.
func WithPlatform(p domain.Platform) SessionOption {
	return func(s *Session) {
		s.platform = p
	}
}

// WithEnviron overrides the source of the base environment.
func WithEnviron(fn func() []string) SessionOption {
	return func(s *Session) {
		s.environ = fn
	}
}

// WithID fixes the session id.
func WithID(id string) SessionOption {
	return func(s *Session) {
		s.id = id
	}
}

// WithClock overrides the clock used for the report's elapsed time.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates a Session running tests through runner.
func NewSession(runner ports.ProcessRunner, logger ports.Logger, opts Options, sessionOpts ...SessionOption) *Session {
	s := &Session{
		opts:     opts,
		runner:   runner,
		logger:   logger,
		out:      os.Stdout,
		platform: domain.HostPlatform(),
		environ:  os.Environ,
		now:      time.Now,
		tasks:    make(map[domain.InternedString]*Task),
	}
	for _, opt := range sessionOpts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.started = s.now()
	s.environment = sync.OnceValue(func() *domain.EnvSnapshot {
		graph := s.graph
		if graph == nil {
			graph = domain.NewGraph()
		}
		snapshot := ResolveEnvironment(graph, s.platform, s.environ())
		return &snapshot
	})
	return s
}

// ID returns the invocation id.
func (s *Session) ID() string {
	return s.id
}

// Options returns the options the session was created with.
func (s *Session) Options() Options {
	return s.opts
}

// Results returns the session's result aggregator.
func (s *Session) Results() *Results {
	return &s.results
}

// Environment returns the environment shared by every test of the session.
// It is computed on first use; later calls return the same snapshot.
func (s *Session) Environment() *domain.EnvSnapshot {
	return s.environment()
}

// Staleness decides whether a test node runs. Tests run whenever they are
// enabled, even when the standard decision found them up to date.
func (s *Session) Staleness(_ *domain.Task, _ domain.Verdict) domain.Verdict {
	if s.opts.NoTests {
		return domain.VerdictSkip
	}
	return domain.VerdictRun
}

// RunTest executes the test node named by node. The pass line is written to
// console. A strict failure is returned as domain.ErrTestFailed; a tolerated
// failure returns nil.
func (s *Session) RunTest(ctx context.Context, node *domain.Task, console io.Writer) error {
	task, ok := s.tasks[node.Name]
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrTaskNotFound, "run test"), "task", node.Name.String())
	}

	outcome, err := task.Execute(ctx, console)
	if err != nil {
		return err
	}

	if outcome.Status == domain.StatusFailed {
		err := zerr.With(zerr.Wrap(domain.ErrTestFailed, task.Display), "exit_code", outcome.Record.ExitCode)
		return zerr.With(err, "session", s.id)
	}
	return nil
}
