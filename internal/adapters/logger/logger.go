// Package logger implements a logging adapter using log/slog.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/proof/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Logger = (*Logger)(nil)

// Logger implements ports.Logger using log/slog.
type Logger struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	output   io.Writer
	jsonMode bool
}

// New creates a new Logger writing pretty output to stderr.
func New() ports.Logger {
	l := &Logger{output: os.Stderr}
	l.rebuild()
	return l
}

// SetOutput updates the logger's output destination.
// If w is nil, os.Stderr is used.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		w = os.Stderr
	}
	l.output = w
	l.rebuild()
}

// SetJSON switches between JSON and pretty logging, keeping the current output.
func (l *Logger) SetJSON(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.jsonMode = enable
	l.rebuild()
}

// rebuild swaps the slog handler. Callers hold l.mu.
func (l *Logger) rebuild() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if l.jsonMode {
		handler = slog.NewJSONHandler(l.output, opts)
	} else {
		handler = NewPrettyHandler(l.output, opts)
	}
	l.logger = slog.New(handler)
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs err with its cause chain. Errors joined with errors.Join are
// reported as separate blocks.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.jsonMode {
		l.logger.Error("operation failed", "error", err)
		return
	}

	blocks := make([]string, 0, 1)
	for _, leaf := range splitJoined(err) {
		if s := formatErrorEntries(collectErrorEntries(leaf)); s != "" {
			blocks = append(blocks, s)
		}
	}
	l.logger.Error(strings.Join(blocks, "\n\n"))
}

// ErrorEntry is one link of an error chain.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// splitJoined flattens errors created with errors.Join into their members.
func splitJoined(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}

	var out []error
	for _, e := range joined.Unwrap() {
		if e != nil {
			out = append(out, splitJoined(e)...)
		}
	}
	return out
}

// collectErrorEntries walks a zerr chain and returns one entry per link.
// Links with an empty message only carry metadata, which is folded into the
// neighbouring entry. The walk stops at the first error that is not a *zerr.Error.
func collectErrorEntries(err error) []ErrorEntry {
	var entries []ErrorEntry
	var pending map[string]any

	merge := func(dst, src map[string]any) map[string]any {
		if len(src) == 0 {
			return dst
		}
		if dst == nil {
			dst = make(map[string]any, len(src))
		}
		for k, v := range src {
			dst[k] = v
		}
		return dst
	}

	for current := err; current != nil; {
		z, ok := current.(*zerr.Error)
		if !ok {
			entries = append(entries, ErrorEntry{Message: current.Error(), Metadata: pending})
			break
		}

		meta := z.Metadata()
		switch {
		case z.Message() != "":
			entries = append(entries, ErrorEntry{Message: z.Message(), Metadata: merge(meta, pending)})
			pending = nil
		case len(entries) > 0:
			last := &entries[len(entries)-1]
			last.Metadata = merge(last.Metadata, meta)
		default:
			pending = merge(pending, meta)
		}
		current = z.Unwrap()
	}

	return entries
}

// formatErrorEntries renders entries as an "Error:" headline followed by a
// "Caused by:" list. Metadata keys are printed sorted, one per line.
func formatErrorEntries(entries []ErrorEntry) string {
	if len(entries) == 0 {
		return ""
	}

	const (
		headIndent  = "       "
		causeArrow  = "    → "
		causeIndent = "      "
	)

	var b strings.Builder
	for i, entry := range entries {
		first, indent := "Error: ", headIndent
		if i > 0 {
			first, indent = causeArrow, causeIndent
			if i == 1 {
				b.WriteString("\n\n  Caused by:")
			}
			b.WriteString("\n")
		}

		lines := strings.Split(entry.Message, "\n")
		b.WriteString(first + lines[0])
		for _, line := range lines[1:] {
			b.WriteString("\n" + indent + line)
		}

		keys := make([]string, 0, len(entry.Metadata))
		for k := range entry.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n%s%s: %v", indent, k, entry.Metadata[k])
		}
	}

	return b.String()
}
