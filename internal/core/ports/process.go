package ports

import (
	"context"

	"go.trai.ch/proof/internal/core/domain"
)

// ProcessRunner spawns a single child process and waits for it.
//
//go:generate mockgen -source=process.go -destination=mocks/mock_process.go -package=mocks
type ProcessRunner interface {
	// Run starts spec.Command in spec.Dir with exactly spec.Env and blocks until it exits.
	//
	// A process that started and exited yields its exit code and a nil error,
	// whatever the code. A non-nil error means the process could not be started.
	Run(ctx context.Context, spec domain.ProcessSpec) (exitCode int, err error)
}
