package telemetry_test

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// recordingRenderer captures renderer calls as readable strings.
type recordingRenderer struct {
	mu     sync.Mutex
	calls  []string
	names  map[string]string
	output map[string]string
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{
		names:  make(map[string]string),
		output: make(map[string]string),
	}
}

func (r *recordingRenderer) Start(_ context.Context) error { return nil }
func (r *recordingRenderer) Stop() error                   { return nil }
func (r *recordingRenderer) Wait() error                   { return nil }

func (r *recordingRenderer) OnPlanEmit(tasks []string, _ map[string][]string, targets []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("plan %v -> %v", tasks, targets))
}

func (r *recordingRenderer) OnTaskStart(spanID, _, name string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[spanID] = name
	r.calls = append(r.calls, "start "+name)
}

func (r *recordingRenderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.output[r.names[spanID]] += string(data)
	r.calls = append(r.calls, "log "+r.names[spanID])
}

func (r *recordingRenderer) OnTaskComplete(spanID string, _ time.Time, err error, cached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := "ok"
	switch {
	case err != nil:
		status = err.Error()
	case cached:
		status = "cached"
	}
	r.calls = append(r.calls, "complete "+r.names[spanID]+" "+status)
}

func (r *recordingRenderer) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingRenderer) outputOf(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.output[name]
}
