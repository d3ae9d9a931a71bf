package ports

import "go.trai.ch/proof/internal/core/domain"

// BuildInfoStore defines the interface for storing and retrieving build information.
// Records live below the workspace root passed to each call.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type BuildInfoStore interface {
	// Get retrieves the build info for a given task name.
	// Returns nil, nil if not found.
	Get(root, taskName string) (*domain.BuildInfo, error)

	// Put stores the build info.
	Put(root string, info domain.BuildInfo) error
}
