package ports

import "go.trai.ch/proof/internal/core/domain"

// Hasher defines the interface for computing hashes.
//
//go:generate mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// ComputeInputHash computes the input hash for a task from its definition,
	// its environment and the already resolved input files.
	ComputeInputHash(task *domain.Task, env map[string]string, inputs []string) (string, error)

	// ComputeOutputHash computes a hash over the contents of the given outputs.
	ComputeOutputHash(outputs []string, root string) (string, error)
}
