// Package linear provides a line-oriented renderer for terminals and CI logs.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/proof/internal/ui/output"
	"go.trai.ch/proof/internal/ui/style"
)

// Renderer implements ports.Renderer with chronological, prefixed output.
//
// In the default mode every output line of a node is printed as it arrives,
// prefixed with the node name. In quiet mode only one status line per node is
// printed; a failed node additionally gets its buffered output.
//
// The renderer expects its callbacks from a single goroutine.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output
	quiet  bool

	tasks map[string]*taskState // spanID -> task state
}

type taskState struct {
	name      string
	startTime time.Time
	buf       bytes.Buffer
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithQuiet hides node output unless the node fails.
func WithQuiet() Option {
	return func(r *Renderer) {
		r.quiet = true
	}
}

// NewRenderer creates a new Renderer. Nil writers default to the process streams.
func NewRenderer(stdout, stderr io.Writer, opts ...Option) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	r := &Renderer{
		stdout: stdout,
		stderr: stderr,
		output: output.NewWithProfile(stderr, output.ColorProfileANSI),
		tasks:  make(map[string]*taskState),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start is a no-op; the renderer prints synchronously.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop flushes partial lines of nodes that never completed.
func (r *Renderer) Stop() error {
	for _, task := range r.tasks {
		if !r.quiet {
			r.flush(task)
		}
	}
	return nil
}

// Wait is a no-op; the renderer prints synchronously.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit prints the number of planned nodes.
func (r *Renderer) OnPlanEmit(tasks []string, _ map[string][]string, targets []string) {
	_, _ = fmt.Fprintf(r.stderr, "%s %d node(s) planned for %v\n",
		r.output.String(style.Tilde).Foreground(r.color(style.Iris)), len(tasks), targets)
}

// OnTaskStart registers the node and, unless quiet, prints a start line.
func (r *Renderer) OnTaskStart(spanID, _, name string, startTime time.Time) {
	r.tasks[spanID] = &taskState{
		name:      name,
		startTime: startTime,
	}

	if !r.quiet {
		_, _ = fmt.Fprintf(r.stderr, "%s Starting...\n", r.prefix(name))
	}
}

// OnTaskLog prints complete lines with the node prefix, or buffers them in quiet mode.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	task, ok := r.tasks[spanID]
	if !ok {
		return
	}

	task.buf.Write(data)
	if r.quiet {
		return
	}

	for {
		i := bytes.IndexByte(task.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		r.printLine(task.name, task.buf.Next(i+1))
	}
}

// OnTaskComplete prints the node's final status line.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error, cached bool) {
	task, ok := r.tasks[spanID]
	if !ok {
		return
	}
	delete(r.tasks, spanID)

	duration := endTime.Sub(task.startTime).Round(time.Millisecond)
	ok = err == nil
	icon := r.output.String(style.StatusIcon(ok, false)).Foreground(r.color(style.StatusColor(ok, false)))

	switch {
	case err != nil && r.quiet:
		_, _ = fmt.Fprintf(r.stderr, "%s %s failed after %v: %v\n", icon, task.name, duration, err)
		r.flush(task)
	case err != nil:
		r.flush(task)
		_, _ = fmt.Fprintf(r.stderr, "%s %s Failed after %v: %v\n", r.prefix(task.name), icon, duration, err)
	case cached && r.quiet:
		_, _ = fmt.Fprintf(r.stderr, "%s %s %s\n", icon, task.name, r.output.String("(cached)").Faint())
	case cached:
		_, _ = fmt.Fprintf(r.stderr, "%s %s Up to date\n", r.prefix(task.name), icon)
	case r.quiet:
		_, _ = fmt.Fprintf(r.stderr, "%s %s %s\n", icon, task.name, r.output.String(duration.String()).Faint())
	default:
		r.flush(task)
		_, _ = fmt.Fprintf(r.stderr, "%s %s Completed in %v\n", r.prefix(task.name), icon, duration)
	}
}

func (r *Renderer) prefix(name string) termenv.Style {
	return r.output.String(fmt.Sprintf("[%s]", name)).Faint()
}

func (r *Renderer) color(c lipgloss.Color) termenv.Color {
	return r.output.Color(string(c))
}

// flush prints whatever is left in the node's buffer.
func (r *Renderer) flush(task *taskState) {
	for task.buf.Len() > 0 {
		line, _ := task.buf.ReadBytes('\n')
		r.printLine(task.name, line)
	}
}

func (r *Renderer) printLine(name string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))

	if len(line) == 0 {
		return
	}

	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", name, line)
}
