package video

import (
	"context"
	"errors"
	"sync"
)

// ErrBufferClosed is returned by Pop after the buffer has been closed
// and drained.
var ErrBufferClosed = errors.New("frame buffer closed")

// Buffer is a bounded FIFO frame queue with drop-oldest backpressure.
// Push never blocks the capture goroutine: at capacity the single oldest
// frame is evicted to admit the new one. Pop blocks until a frame is
// available, the context is cancelled, or the buffer is closed.
type Buffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	frames   []*Frame
	head     int
	count    int
	capacity int
	dropped  uint64
	closed   bool
}

// DefaultBufferCapacity is the default number of frames held before
// drop-oldest eviction kicks in.
const DefaultBufferCapacity = 30

// NewBuffer creates a frame buffer with the given capacity
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultBufferCapacity
	}
	b := &Buffer{
		frames:   make([]*Frame, capacity),
		capacity: capacity,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Push inserts a frame, evicting the oldest one if the buffer is full.
// Returns false if the buffer has been closed.
func (b *Buffer) Push(f *Frame) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	if b.count == b.capacity {
		// Evict oldest
		b.frames[b.head] = nil
		b.head = (b.head + 1) % b.capacity
		b.count--
		b.dropped++
	}

	b.frames[(b.head+b.count)%b.capacity] = f
	b.count++
	b.cond.Signal()
	return true
}

// Pop removes and returns the oldest frame, blocking until one is
// available. Returns ErrBufferClosed once the buffer is closed and empty,
// or the context error on cancellation.
func (b *Buffer) Pop(ctx context.Context) (*Frame, error) {
	// Wake the cond wait when the context is cancelled
	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	defer stop()

	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 {
		if b.closed {
			return nil, ErrBufferClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.cond.Wait()
	}

	f := b.frames[b.head]
	b.frames[b.head] = nil
	b.head = (b.head + 1) % b.capacity
	b.count--
	return f, nil
}

// TryPop removes and returns the oldest frame without blocking.
// Returns nil when the buffer is empty.
func (b *Buffer) TryPop() *Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	f := b.frames[b.head]
	b.frames[b.head] = nil
	b.head = (b.head + 1) % b.capacity
	b.count--
	return f
}

// Len returns the number of buffered frames
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Capacity returns the configured capacity
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Dropped returns the number of frames evicted by backpressure
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close marks the buffer closed and wakes any blocked consumers.
// Buffered frames remain poppable until drained.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.cond.Broadcast()
}
