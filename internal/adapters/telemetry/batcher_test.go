package telemetry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/proof/internal/adapters/telemetry"
)

func TestBatchProcessor_FlushOnSize(t *testing.T) {
	var chunks []string
	var mu sync.Mutex

	// A large time limit keeps the ticker out of the picture.
	bp := telemetry.NewBatchProcessor(5, time.Hour, func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		chunks = append(chunks, string(data))
	})
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("123"))
	require.NoError(t, err)

	mu.Lock()
	assert.Empty(t, chunks)
	mu.Unlock()

	// No newline buffered: the whole buffer goes out once the limit is hit.
	_, err = bp.Write([]byte("456"))
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []string{"123456"}, chunks)
	mu.Unlock()
}

func TestBatchProcessor_SizeFlushCutsAtLastNewline(t *testing.T) {
	var chunks []string
	var mu sync.Mutex

	bp := telemetry.NewBatchProcessor(10, time.Hour, func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		chunks = append(chunks, string(data))
	})

	_, err := bp.Write([]byte("cc -c a.c\ncc -c b"))
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []string{"cc -c a.c\n"}, chunks)
	mu.Unlock()

	require.NoError(t, bp.Close())

	mu.Lock()
	assert.Equal(t, []string{"cc -c a.c\n", "cc -c b"}, chunks)
	mu.Unlock()
}

func TestBatchProcessor_FlushOnTime(t *testing.T) {
	var collected []byte
	var mu sync.Mutex
	flushCh := make(chan struct{}, 1)

	// Small time limit
	bp := telemetry.NewBatchProcessor(100, 50*time.Millisecond, func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		collected = append(collected, data...)
		// Signal that flush happened
		select {
		case flushCh <- struct{}{}:
		default:
		}
	})
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("test"))
	require.NoError(t, err)

	mu.Lock()
	assert.Empty(t, collected)
	mu.Unlock()

	// Wait for flush
	select {
	case <-flushCh:
		// success
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for flush")
	}

	mu.Lock()
	assert.Equal(t, "test", string(collected))
	mu.Unlock()
}

func TestBatchProcessor_ManualFlush(t *testing.T) {
	var collected []byte
	var mu sync.Mutex

	bp := telemetry.NewBatchProcessor(100, time.Hour, func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		collected = append(collected, data...)
	})
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("hello"))
	require.NoError(t, err)

	mu.Lock()
	assert.Empty(t, collected)
	mu.Unlock()

	bp.Flush()

	mu.Lock()
	assert.Equal(t, "hello", string(collected))
	mu.Unlock()
}

func TestBatchProcessor_CloseFlushes(t *testing.T) {
	var collected []byte
	var mu sync.Mutex

	bp := telemetry.NewBatchProcessor(100, time.Hour, func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		collected = append(collected, data...)
	})

	_, err := bp.Write([]byte("pending"))
	require.NoError(t, err)

	mu.Lock()
	assert.Empty(t, collected)
	mu.Unlock()

	err = bp.Close()
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, "pending", string(collected))
	mu.Unlock()

	_, err = bp.Write([]byte("fail"))
	require.Error(t, err)

	// Closing twice is harmless.
	require.NoError(t, bp.Close())
}

func TestBatchProcessor_ThreadSafety(t *testing.T) {
	var collected []byte
	var mu sync.Mutex

	// Use small limits to trigger frequent flushing from both size and time
	bp := telemetry.NewBatchProcessor(20, 10*time.Millisecond, func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		collected = append(collected, data...)
	})
	defer func() { _ = bp.Close() }()

	var wg sync.WaitGroup
	workers := 10
	iterations := 100
	data := []byte("a")

	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for j := range iterations {
				_, _ = bp.Write(data)
				if j%10 == 0 {
					bp.Flush()
				}
				if j%20 == 0 {
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}

	wg.Wait()
	_ = bp.Close()

	mu.Lock()
	assert.Len(t, collected, workers*iterations)
	mu.Unlock()
}
