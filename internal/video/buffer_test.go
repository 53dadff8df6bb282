package video

import (
	"context"
	"testing"
	"time"
)

func frameWithID(id string, seq int) *Frame {
	f := NewFrame(id, 2, 2)
	f.Pixels[0] = byte(seq)
	return f
}

func TestBuffer_PushPop_FIFO(t *testing.T) {
	buf := NewBuffer(5)

	for i := 1; i <= 3; i++ {
		if !buf.Push(frameWithID("cam", i)) {
			t.Fatalf("Push %d failed", i)
		}
	}

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		f, err := buf.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop failed: %v", err)
		}
		if got := int(f.Pixels[0]); got != i {
			t.Errorf("Expected frame %d, got %d", i, got)
		}
	}
}

func TestBuffer_DropOldest(t *testing.T) {
	buf := NewBuffer(30)

	// 31 pushes into capacity 30: frame 1 must be evicted
	for i := 1; i <= 31; i++ {
		buf.Push(frameWithID("cam", i))
		if buf.Len() > buf.Capacity() {
			t.Fatalf("Buffer exceeded capacity: %d", buf.Len())
		}
	}

	if buf.Len() != 30 {
		t.Fatalf("Expected 30 buffered frames, got %d", buf.Len())
	}
	if buf.Dropped() != 1 {
		t.Errorf("Expected 1 dropped frame, got %d", buf.Dropped())
	}

	// Remaining frames must be 2..31 in order; the evicted frame never
	// comes back out
	ctx := context.Background()
	for i := 2; i <= 31; i++ {
		f, err := buf.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop failed: %v", err)
		}
		if got := int(f.Pixels[0]); got != i {
			t.Errorf("Expected frame %d, got %d", i, got)
		}
	}
}

func TestBuffer_DropOldest_ManyEvictions(t *testing.T) {
	buf := NewBuffer(3)

	for i := 1; i <= 10; i++ {
		buf.Push(frameWithID("cam", i))
	}

	if buf.Len() != 3 {
		t.Fatalf("Expected 3 buffered frames, got %d", buf.Len())
	}

	ctx := context.Background()
	for i := 8; i <= 10; i++ {
		f, err := buf.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop failed: %v", err)
		}
		if got := int(f.Pixels[0]); got != i {
			t.Errorf("Expected frame %d, got %d", i, got)
		}
	}
}

func TestBuffer_Pop_BlocksUntilPush(t *testing.T) {
	buf := NewBuffer(5)

	done := make(chan *Frame, 1)
	go func() {
		f, err := buf.Pop(context.Background())
		if err != nil {
			t.Errorf("Pop failed: %v", err)
		}
		done <- f
	}()

	select {
	case <-done:
		t.Fatal("Pop returned before a frame was pushed")
	case <-time.After(50 * time.Millisecond):
	}

	buf.Push(frameWithID("cam", 7))

	select {
	case f := <-done:
		if int(f.Pixels[0]) != 7 {
			t.Errorf("Expected frame 7, got %d", f.Pixels[0])
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after push")
	}
}

func TestBuffer_Pop_ContextCancel(t *testing.T) {
	buf := NewBuffer(5)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := buf.Pop(ctx)
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not observe cancellation")
	}
}

func TestBuffer_Close_WakesConsumer(t *testing.T) {
	buf := NewBuffer(5)

	errCh := make(chan error, 1)
	go func() {
		_, err := buf.Pop(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	buf.Close()

	select {
	case err := <-errCh:
		if err != ErrBufferClosed {
			t.Errorf("Expected ErrBufferClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not observe close")
	}
}

func TestBuffer_Close_DrainsRemaining(t *testing.T) {
	buf := NewBuffer(5)
	buf.Push(frameWithID("cam", 1))
	buf.Close()

	if buf.Push(frameWithID("cam", 2)) {
		t.Error("Push after close should return false")
	}

	f, err := buf.Pop(context.Background())
	if err != nil {
		t.Fatalf("Pop of buffered frame after close failed: %v", err)
	}
	if int(f.Pixels[0]) != 1 {
		t.Errorf("Expected frame 1, got %d", f.Pixels[0])
	}

	if _, err := buf.Pop(context.Background()); err != ErrBufferClosed {
		t.Errorf("Expected ErrBufferClosed, got %v", err)
	}
}

func TestBuffer_TryPop(t *testing.T) {
	buf := NewBuffer(5)

	if f := buf.TryPop(); f != nil {
		t.Errorf("Expected nil from empty buffer, got %v", f)
	}

	buf.Push(frameWithID("cam", 1))
	f := buf.TryPop()
	if f == nil || int(f.Pixels[0]) != 1 {
		t.Errorf("Expected frame 1, got %v", f)
	}
}
