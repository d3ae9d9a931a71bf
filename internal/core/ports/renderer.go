package ports

import (
	"context"
	"time"
)

// Renderer turns the telemetry event stream into console output.
// The scheduler never talks to a renderer directly; events arrive through the tracer bridge.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Stop signals the renderer to stop accepting new events and flush buffered output.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnPlanEmit is called once the scheduler has planned the nodes of this run.
	// tasks is in execution order, deps maps a node to its dependencies and
	// targets holds the names the user asked for.
	OnPlanEmit(tasks []string, deps map[string][]string, targets []string)

	// OnTaskStart is called when a node begins execution.
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog is called with raw output of a node. data may hold partial lines.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a node finishes. err is nil on success and
	// cached reports that the node was up to date and did not run.
	OnTaskComplete(spanID string, endTime time.Time, err error, cached bool)
}
