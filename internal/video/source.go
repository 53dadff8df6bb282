package video

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Device abstracts a capture device or stream handle.
// Read returns io.EOF at end of stream; any other error counts toward the
// consecutive-failure threshold.
type Device interface {
	Open(source string) error
	Read() (*Frame, error)
	Release() error
}

// ErrDeviceUnavailable indicates the capture device could not be opened
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// maxConsecutiveFailures is the number of consecutive failed reads after
// which a source is considered fatally disconnected.
const maxConsecutiveFailures = 10

// Source runs a dedicated capture goroutine for one camera, pushing frames
// into its buffer. Capture cadence never stalls on a slow consumer: the
// buffer applies drop-oldest backpressure.
type Source struct {
	id        string
	device    Device
	buffer    *Buffer
	frameSkip int
	onOffline func(cameraID string)
	onFrame   func(cameraID string)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	logger *slog.Logger
}

// SourceConfig configures a capture source
type SourceConfig struct {
	ID        string
	Device    Device
	Buffer    *Buffer
	FrameSkip int
	// OnOffline is invoked exactly once if the device fails fatally
	OnOffline func(cameraID string)
	// OnFrame is invoked after each frame offered to the buffer
	OnFrame func(cameraID string)
}

// NewSource creates a capture source for one camera
func NewSource(cfg SourceConfig) *Source {
	if cfg.FrameSkip < 1 {
		cfg.FrameSkip = 1
	}
	return &Source{
		id:        cfg.ID,
		device:    cfg.Device,
		buffer:    cfg.Buffer,
		frameSkip: cfg.FrameSkip,
		onOffline: cfg.OnOffline,
		onFrame:   cfg.OnFrame,
		logger:    slog.Default().With("component", "video_source", "camera", cfg.ID),
	}
}

// ID returns the camera identifier
func (s *Source) ID() string {
	return s.id
}

// Buffer returns the frame buffer fed by this source
func (s *Source) Buffer() *Buffer {
	return s.buffer
}

// Start opens the device and launches the capture goroutine
func (s *Source) Start(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if err := s.device.Open(source); err != nil {
		return errors.Join(ErrDeviceUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.captureLoop(runCtx)

	s.logger.Info("Capture started", "source", source, "frame_skip", s.frameSkip)
	return nil
}

// Stop signals the capture loop to exit and releases the device.
// Cooperative: a blocking read in flight may complete one more cycle
// before the stop is observed.
func (s *Source) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done

	if err := s.device.Release(); err != nil {
		s.logger.Warn("Failed to release device", "error", err)
	}
	s.logger.Info("Capture stopped")
}

// Running reports whether the capture loop is active
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Source) captureLoop(ctx context.Context) {
	defer close(s.done)

	frameCount := 0
	consecutiveFailures := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := s.device.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("End of stream")
				s.goOffline()
				return
			}
			consecutiveFailures++
			if consecutiveFailures > maxConsecutiveFailures {
				s.logger.Error("Device fatally disconnected", "consecutive_failures", consecutiveFailures)
				s.goOffline()
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		consecutiveFailures = 0

		// Only every Nth frame is offered downstream
		if frameCount%s.frameSkip == 0 {
			s.buffer.Push(frame)
			if s.onFrame != nil {
				s.onFrame(s.id)
			}
		}
		frameCount++
	}
}

// goOffline marks the source stopped and emits the offline signal once
func (s *Source) goOffline() {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	if wasRunning && s.onOffline != nil {
		s.onOffline(s.id)
	}
}
