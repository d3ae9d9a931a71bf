package scheduler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/proof/internal/adapters/cas"       //nolint:depguard // Wired in engine wiring
	"go.trai.ch/proof/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/proof/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/proof/internal/adapters/shell"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/proof/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/proof/internal/core/ports"
)

// NodeID is the unique identifier for the scheduler Graft node.
const NodeID graft.ID = "engine.scheduler"

func init() {
	graft.Register(graft.Node[*Scheduler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			shell.NodeID,
			cas.NodeID,
			fs.HasherNodeID,
			fs.ResolverNodeID,
			fs.VerifierNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Scheduler, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}

			store, err := graft.Dep[ports.BuildInfoStore](ctx)
			if err != nil {
				return nil, err
			}

			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}

			resolver, err := graft.Dep[ports.InputResolver](ctx)
			if err != nil {
				return nil, err
			}

			verifier, err := graft.Dep[ports.Verifier](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			// Each run gets its own tracer through WithTracer.
			return NewScheduler(
				executor,
				store,
				hasher,
				resolver,
				verifier,
				telemetry.NewNoOpTracer(),
				log,
			), nil
		},
	})
}
