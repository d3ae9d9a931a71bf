package testrun

import (
	"strings"
	"time"

	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/zerr"
)

// Options control how the test nodes of one invocation behave.
type Options struct {
	// NoTests skips every test node.
	NoTests bool
	// Permissive turns test failures into warnings.
	Permissive bool
	// TestCmd wraps the test command. Its single %s receives the executable.
	TestCmd string
	// Timeout kills a test binary that runs longer. Zero means no limit.
	Timeout time.Duration
}

// Validate checks the option values that can be checked before a run.
func (o Options) Validate() error {
	if o.TestCmd != "" && strings.Count(o.TestCmd, "%s") != 1 {
		return zerr.With(zerr.Wrap(domain.ErrInvalidTestCommand, "--testcmd needs exactly one %s"), "testcmd", o.TestCmd)
	}
	if o.Timeout < 0 {
		return zerr.With(zerr.Wrap(domain.ErrInvalidTestTimeout, "validate options"), "timeout", o.Timeout.String())
	}
	return nil
}
