package shell

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/proof/internal/core/ports"
)

const (
	// NodeID is the unique identifier for the build executor Graft node.
	NodeID graft.ID = "adapter.executor"
	// RunnerNodeID is the unique identifier for the test process runner Graft node.
	RunnerNodeID graft.ID = "adapter.process_runner"
)

func init() {
	graft.Register(graft.Node[ports.Executor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{},
		Run: func(_ context.Context) (ports.Executor, error) {
			return NewExecutor(), nil
		},
	})

	graft.Register(graft.Node[ports.ProcessRunner]{
		ID:        RunnerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{},
		Run: func(_ context.Context) (ports.ProcessRunner, error) {
			return NewRunner(), nil
		},
	})
}
