package telemetry

import (
	"time"

	"go.trai.ch/proof/internal/core/ports"
)

// event is an item on the bridge's delivery queue. Events reach the renderer
// in the order they were queued, so a node's output always precedes its
// completion.
type event interface {
	deliver(r ports.Renderer)
}

type planEvent struct {
	tasks   []string
	deps    map[string][]string
	targets []string
}

func (e planEvent) deliver(r ports.Renderer) {
	r.OnPlanEmit(e.tasks, e.deps, e.targets)
}

type startEvent struct {
	spanID    string
	parentID  string
	name      string
	startTime time.Time
}

func (e startEvent) deliver(r ports.Renderer) {
	r.OnTaskStart(e.spanID, e.parentID, e.name, e.startTime)
}

type logEvent struct {
	spanID string
	data   []byte
}

func (e logEvent) deliver(r ports.Renderer) {
	r.OnTaskLog(e.spanID, e.data)
}

type completeEvent struct {
	spanID  string
	endTime time.Time
	err     error
	cached  bool
}

func (e completeEvent) deliver(r ports.Renderer) {
	r.OnTaskComplete(e.spanID, e.endTime, e.err, e.cached)
}

// barrierEvent is released once all events queued before it were delivered.
type barrierEvent struct {
	reached chan struct{}
}

func (barrierEvent) deliver(ports.Renderer) {}
