// Package system wires camera pipelines together and drives processing
package system

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bytelocker/bytelocker/internal/alert"
	"github.com/bytelocker/bytelocker/internal/analytics"
	"github.com/bytelocker/bytelocker/internal/config"
	"github.com/bytelocker/bytelocker/internal/detect"
	"github.com/bytelocker/bytelocker/internal/events"
	"github.com/bytelocker/bytelocker/internal/metrics"
	"github.com/bytelocker/bytelocker/internal/safety"
	"github.com/bytelocker/bytelocker/internal/video"
)

// Detector produces the canonical detection list for a frame
type Detector interface {
	Detect(frame *video.Frame) ([]detect.Detection, error)
}

// Recorder is the external persistence sink. Implementations must not
// block or fail the calling tick.
type Recorder interface {
	Record(ctx context.Context, cameraID string, eventType events.EventType, payload any, confidence float64)
}

// defaultTickInterval drives the processing loop cadence
const defaultTickInterval = 100 * time.Millisecond

// pipeline holds the per-camera processing chain
type pipeline struct {
	id       string
	source   *video.Source
	buffer   *video.Buffer
	detector Detector
	crowd    *analytics.CrowdAnalyzer
	behavior *analytics.BehaviorAnalyzer
	safety   *safety.Monitor
}

// System coordinates all camera pipelines: capture feeds each camera's
// buffer while one shared processing loop drains them, so a slow detector
// never stalls frame acquisition.
type System struct {
	cfg        *config.Config
	areas      []analytics.Polygon
	dispatcher *alert.Dispatcher
	recorder   Recorder
	metrics    *metrics.Metrics
	poseModel  safety.PoseClassifier
	unsafeRule safety.UnsafeRule

	mu        sync.RWMutex
	pipelines map[string]*pipeline
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// now is swappable for working-hours tests
	now          func() time.Time
	tickInterval time.Duration

	logger *slog.Logger
}

// Options configures a System
type Options struct {
	Config     *config.Config
	Dispatcher *alert.Dispatcher
	Recorder   Recorder
	Metrics    *metrics.Metrics
	// PoseClassifier enables pose-based safety monitoring when
	// enable_pose_detection is set; nil keeps proximity mode
	PoseClassifier safety.PoseClassifier
	// UnsafeRule judges classified poses; nil means always safe
	UnsafeRule safety.UnsafeRule
	// TickInterval overrides the processing cadence (default 100ms)
	TickInterval time.Duration
}

// New creates the surveillance system from validated configuration
func New(opts Options) *System {
	areas := make([]analytics.Polygon, 0, len(opts.Config.Analytics.RestrictedAreas))
	for _, area := range opts.Config.Analytics.RestrictedAreas {
		poly := analytics.Polygon{Name: area.Name}
		for _, pt := range area.Points {
			poly.Vertices = append(poly.Vertices, analytics.Point{X: pt[0], Y: pt[1]})
		}
		areas = append(areas, poly)
	}

	tick := opts.TickInterval
	if tick <= 0 {
		tick = defaultTickInterval
	}

	return &System{
		cfg:          opts.Config,
		areas:        areas,
		dispatcher:   opts.Dispatcher,
		recorder:     opts.Recorder,
		metrics:      opts.Metrics,
		poseModel:    opts.PoseClassifier,
		unsafeRule:   opts.UnsafeRule,
		pipelines:    make(map[string]*pipeline),
		now:          time.Now,
		tickInterval: tick,
		logger:       slog.Default().With("component", "system"),
	}
}

// AddCamera registers a camera pipeline and starts its capture goroutine
func (s *System) AddCamera(ctx context.Context, id, source string, device video.Device, detector Detector) error {
	buffer := video.NewBuffer(s.cfg.Analytics.BufferCapacity)

	var poseClassifier safety.PoseClassifier
	if s.cfg.Analytics.EnablePoseDetection {
		poseClassifier = s.poseModel
	}

	p := &pipeline{
		id:       id,
		buffer:   buffer,
		detector: detector,
		crowd: analytics.NewCrowdAnalyzer(analytics.CrowdConfig{
			Eps:        s.cfg.Analytics.ClusterEps,
			MinSamples: s.cfg.Analytics.ClusterMinSamples,
		}),
		behavior: analytics.NewBehaviorAnalyzer(),
		safety: safety.NewMonitor(safety.MonitorConfig{
			ProximityThreshold: s.cfg.Safety.ProximityThreshold,
			Classifier:         poseClassifier,
			Unsafe:             s.unsafeRule,
		}),
	}
	p.source = video.NewSource(video.SourceConfig{
		ID:        id,
		Device:    device,
		Buffer:    buffer,
		FrameSkip: s.cfg.Analytics.FrameSkip,
		OnOffline: s.cameraOffline,
		OnFrame: func(camera string) {
			if s.metrics != nil {
				s.metrics.FramesCaptured.WithLabelValues(camera).Inc()
			}
		},
	})

	if err := p.source.Start(ctx, source); err != nil {
		return err
	}

	s.mu.Lock()
	s.pipelines[id] = p
	s.mu.Unlock()

	s.logger.Info("Camera added", "camera", id, "source", source)
	return nil
}

// RemoveCamera stops and removes a camera pipeline
func (s *System) RemoveCamera(id string) {
	s.mu.Lock()
	p, ok := s.pipelines[id]
	delete(s.pipelines, id)
	s.mu.Unlock()

	if ok {
		p.source.Stop()
		p.buffer.Close()
		s.logger.Info("Camera removed", "camera", id)
	}
}

// Cameras returns the registered camera IDs
func (s *System) Cameras() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.pipelines))
	for id := range s.pipelines {
		ids = append(ids, id)
	}
	return ids
}

// CameraRunning reports whether a camera's capture loop is active
func (s *System) CameraRunning(id string) bool {
	s.mu.RLock()
	p, ok := s.pipelines[id]
	s.mu.RUnlock()
	return ok && p.source.Running()
}

// CrowdAnalysis returns the most recent crowd result for a camera
func (s *System) CrowdAnalysis(id string) (analytics.CrowdResult, bool) {
	s.mu.RLock()
	p, ok := s.pipelines[id]
	s.mu.RUnlock()
	if !ok {
		return analytics.CrowdResult{}, false
	}
	return p.crowd.Current(), true
}

// Start launches the shared processing loop
func (s *System) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(runCtx)
	s.logger.Info("Processing loop started", "tick", s.tickInterval)
}

// Stop halts processing and all capture goroutines
func (s *System) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	s.mu.Lock()
	pipelines := make([]*pipeline, 0, len(s.pipelines))
	for _, p := range s.pipelines {
		pipelines = append(pipelines, p)
	}
	s.mu.Unlock()

	for _, p := range pipelines {
		p.source.Stop()
		p.buffer.Close()
	}
	s.logger.Info("System stopped")
}

// run iterates all camera pipelines every tick
func (s *System) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			ids := make([]string, 0, len(s.pipelines))
			for id := range s.pipelines {
				ids = append(ids, id)
			}
			s.mu.RUnlock()

			for _, id := range ids {
				s.ProcessFrame(ctx, id)
			}
		}
	}
}

// ProcessFrame runs one tick for one camera: dequeue at most one frame,
// detect once, then fan the detection list out to every analyzer. An empty
// buffer is a no-op; a detection failure skips the tick.
func (s *System) ProcessFrame(ctx context.Context, id string) {
	s.mu.RLock()
	p, ok := s.pipelines[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	frame := p.buffer.TryPop()
	if frame == nil {
		return
	}
	if s.metrics != nil {
		s.metrics.BufferDepth.WithLabelValues(id).Set(float64(p.buffer.Len()))
		s.metrics.FramesDropped.WithLabelValues(id).Set(float64(p.buffer.Dropped()))
	}

	detections, err := p.detector.Detect(frame)
	if err != nil {
		s.logger.Warn("Detection failed, skipping tick", "camera", id, "error", err)
		if s.metrics != nil {
			s.metrics.TicksSkipped.WithLabelValues(id).Inc()
		}
		return
	}

	crowd := p.crowd.Analyze(detections)
	if crowd.Density > s.cfg.Analytics.MaxCrowdDensity {
		s.raise(alert.TypeHighCrowdDensity, map[string]any{
			"camera":       id,
			"density":      crowd.Density,
			"people_count": crowd.PeopleCount,
			"hotspots":     crowd.Hotspots,
		})
		s.record(ctx, id, events.EventHighDensity, crowd, 1.0)
	}

	for _, anomaly := range p.behavior.Analyze(detections, s.areas) {
		s.raise(alert.TypeBehaviorAnomaly, map[string]any{
			"camera":     id,
			"type":       string(anomaly.Type),
			"location":   anomaly.Location,
			"area":       anomaly.Area,
			"confidence": anomaly.Confidence,
		})
		s.record(ctx, id, events.EventBehaviorAnomaly, anomaly, anomaly.Confidence)
	}

	if s.isWorkingHours() {
		for _, violation := range p.safety.Monitor(frame, detections) {
			s.raise(alert.TypeSafetyViolation, map[string]any{
				"camera":     id,
				"type":       string(violation.Type),
				"location":   violation.Location,
				"confidence": violation.Confidence,
			})
			s.record(ctx, id, events.EventSafetyViolation, violation, violation.Confidence)
		}
	}

	for _, det := range detections {
		s.record(ctx, id, events.EventPersonDetected, det, det.Confidence)
	}

	if s.metrics != nil {
		s.metrics.TicksProcessed.WithLabelValues(id).Inc()
		s.metrics.Detections.WithLabelValues(id).Add(float64(len(detections)))
		s.metrics.CrowdDensity.WithLabelValues(id).Set(crowd.Density)
	}
}

// isWorkingHours checks the inclusive configured hour range against local
// wall-clock time
func (s *System) isWorkingHours() bool {
	return s.cfg.Analytics.WorkingHours.Contains(s.now().Hour())
}

// cameraOffline surfaces a fatal capture failure exactly once per camera
func (s *System) cameraOffline(id string) {
	s.logger.Error("Camera offline", "camera", id)
	s.raise(alert.TypeCameraOffline, map[string]any{"camera": id})
	s.record(context.Background(), id, events.EventCameraOffline, map[string]any{"camera": id}, 0)
}

func (s *System) raise(alertType alert.Type, details map[string]any) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Raise(alertType, details)
	if s.metrics != nil {
		s.metrics.AlertsRaised.WithLabelValues(string(alertType)).Inc()
	}
}

func (s *System) record(ctx context.Context, id string, eventType events.EventType, payload any, confidence float64) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, id, eventType, payload, confidence)
}
