// Package telemetry bridges OpenTelemetry spans to the console renderer.
package telemetry

import (
	"bytes"
	"sync"
	"time"

	"go.trai.ch/zerr"
)

const (
	// DefaultSizeLimit is the default buffer size (4KB) if not specified.
	DefaultSizeLimit = 4096
	// DefaultTimeLimit is the default flush interval (50ms) if not specified.
	DefaultTimeLimit = 50 * time.Millisecond
)

// errBatchClosed is returned by Write after Close.
var errBatchClosed = zerr.New("batch processor is closed")

// BatchProcessor buffers node output and hands it to onFlush in chunks.
// Size-triggered flushes cut at the last newline so chunks rarely split a
// line; timed flushes and Close send everything. It is safe for concurrent use.
type BatchProcessor struct {
	sizeLimit int
	timeLimit time.Duration
	onFlush   func([]byte)

	mu     sync.Mutex
	buffer bytes.Buffer
	ticker *time.Ticker
	stopCh chan struct{}
	closed bool
}

// NewBatchProcessor returns a new BatchProcessor. Non-positive limits select
// the defaults. Call Close to stop the background ticker.
func NewBatchProcessor(sizeLimit int, timeLimit time.Duration, onFlush func([]byte)) *BatchProcessor {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	bp := &BatchProcessor{
		sizeLimit: sizeLimit,
		timeLimit: timeLimit,
		onFlush:   onFlush,
		stopCh:    make(chan struct{}),
		ticker:    time.NewTicker(timeLimit),
	}
	go bp.run()

	return bp
}

// Write appends p to the buffer and flushes complete lines once the size limit is reached.
func (bp *BatchProcessor) Write(p []byte) (n int, err error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return 0, errBatchClosed
	}

	n, _ = bp.buffer.Write(p)

	if bp.buffer.Len() >= bp.sizeLimit {
		cut := bytes.LastIndexByte(bp.buffer.Bytes(), '\n') + 1
		if cut == 0 {
			cut = bp.buffer.Len()
		}
		bp.flushLocked(cut)
		bp.ticker.Reset(bp.timeLimit)
	}

	return n, nil
}

// Flush forces any buffered data to be sent to the callback.
func (bp *BatchProcessor) Flush() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.closed {
		return
	}
	bp.flushLocked(bp.buffer.Len())
}

// Close stops the background flusher and performs a final flush.
func (bp *BatchProcessor) Close() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return nil
	}

	bp.closed = true
	close(bp.stopCh)
	bp.flushLocked(bp.buffer.Len())
	return nil
}

func (bp *BatchProcessor) run() {
	for {
		select {
		case <-bp.ticker.C:
			bp.Flush()
		case <-bp.stopCh:
			bp.ticker.Stop()
			return
		}
	}
}

// flushLocked sends the first n buffered bytes. mu must be held; onFlush is
// called under the lock to keep chunks ordered.
func (bp *BatchProcessor) flushLocked(n int) {
	if n == 0 {
		return
	}

	data := make([]byte, n)
	copy(data, bp.buffer.Next(n))

	if bp.onFlush != nil {
		bp.onFlush(data)
	}
}
