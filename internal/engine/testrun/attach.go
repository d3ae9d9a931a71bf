package testrun

import (
	"maps"
	"slices"

	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/zerr"
)

// AttachOption configures Attach.
type AttachOption func(*attachConfig)

type attachConfig struct {
	hooks map[string]PostHook
}

// WithPostHook registers fn as the post hook of the test of target.
func WithPostHook(target string, fn PostHook) AttachOption {
	return func(c *attachConfig) {
		c.hooks[target] = fn
	}
}

// Attach adds a test node for every task of g that declares a test and links
// an artifact. The node is named <target>#test and depends on the target and
// on the tasks listed in the test's after field. Tasks with a test block but
// no link get no node.
//
// Attach must be called once, before the graph is scheduled.
func (s *Session) Attach(g *domain.Graph, opts ...AttachOption) error {
	cfg := &attachConfig{hooks: make(map[string]PostHook)}
	for _, opt := range opts {
		opt(cfg)
	}

	var targets []domain.Task
	for task := range g.Tasks() {
		if task.Test != nil && !task.Link.IsZero() {
			targets = append(targets, task)
		}
	}

	s.graph = g
	for _, target := range targets {
		node := &domain.Task{
			Name:         domain.TestNodeName(target.Name),
			Dependencies: append([]domain.InternedString{target.Name}, target.Test.After...),
			WorkingDir:   target.WorkingDir,
			Group:        target.Group,
			TestOf:       target.Name,
		}
		if err := g.AddTask(node); err != nil {
			return err
		}

		s.tasks[node.Name] = &Task{
			Name:       node.Name,
			Display:    target.Link.String(),
			Artifact:   absolute(g.Root(), target.Link.String()),
			Command:    slices.Clone(target.Test.Command),
			WorkingDir: target.Test.WorkingDir,
			PostHook:   cfg.hooks[target.Name.String()],
			session:    s,
		}
		delete(cfg.hooks, target.Name.String())
	}

	if len(cfg.hooks) > 0 {
		name := slices.Sorted(maps.Keys(cfg.hooks))[0]
		return zerr.With(zerr.Wrap(domain.ErrTaskNotFound, "post hook target has no test"), "task", name)
	}
	return nil
}

// Task returns the test task of the node called name.
func (s *Session) Task(name domain.InternedString) (*Task, bool) {
	t, ok := s.tasks[name]
	return t, ok
}
