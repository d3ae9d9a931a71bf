package telemetry

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/proof/internal/core/ports"
)

// LogBufferSize determines the size of the bridge's event queue.
const LogBufferSize = 4096

// Bridge implements sdktrace.SpanProcessor and forwards node spans to a Renderer.
// All renderer calls happen on one goroutine, in the order the events were queued.
type Bridge struct {
	renderer ports.Renderer
	events   chan event
	done     chan struct{}
	mu       sync.RWMutex
	closed   bool
}

// NewBridge returns a new Bridge delivering to renderer.
func NewBridge(renderer ports.Renderer) *Bridge {
	b := &Bridge{
		renderer: renderer,
		events:   make(chan event, LogBufferSize),
		done:     make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bridge) run() {
	defer close(b.done)
	for ev := range b.events {
		if barrier, ok := ev.(barrierEvent); ok {
			close(barrier.reached)
			continue
		}
		if b.renderer != nil {
			ev.deliver(b.renderer)
		}
	}
}

// send queues ev. Events sent after Shutdown are dropped.
func (b *Bridge) send(ev event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.events <- ev
}

// OnStart is called when a span starts.
func (b *Bridge) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	name, ok := nodeName(s.Attributes())
	if !ok {
		return
	}

	sc := s.SpanContext()
	if !sc.IsValid() {
		return
	}

	var parentID string
	if parentSpan := trace.SpanFromContext(parent); parentSpan.SpanContext().IsValid() {
		parentID = parentSpan.SpanContext().SpanID().String()
	}

	b.send(startEvent{
		spanID:    sc.SpanID().String(),
		parentID:  parentID,
		name:      name,
		startTime: s.StartTime(),
	})
}

// OnEnd is called when a span ends.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	attrs := s.Attributes()
	if _, ok := nodeName(attrs); !ok {
		return
	}

	sc := s.SpanContext()
	if !sc.IsValid() {
		return
	}

	var err error
	if s.Status().Code == codes.Error {
		desc := s.Status().Description
		if desc == "" {
			desc = "task failed"
		}
		err = errors.New(desc)
	}

	b.send(completeEvent{
		spanID:  sc.SpanID().String(),
		endTime: s.EndTime(),
		err:     err,
		cached:  boolAttr(attrs, ports.AttrCached),
	})
}

// ForceFlush blocks until every event queued before the call has reached the renderer.
func (b *Bridge) ForceFlush(ctx context.Context) error {
	reached := make(chan struct{})

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil
	}
	b.events <- barrierEvent{reached: reached}
	b.mu.RUnlock()

	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting events and waits until the queue is drained.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.events)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func boolAttr(attrs []attribute.KeyValue, key attribute.Key) bool {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value.AsBool()
		}
	}
	return false
}

// nodeName returns the display name of a node span.
func nodeName(attrs []attribute.KeyValue) (string, bool) {
	for _, kv := range attrs {
		if kv.Key == ports.AttrNode {
			return kv.Value.AsString(), true
		}
	}
	return "", false
}
