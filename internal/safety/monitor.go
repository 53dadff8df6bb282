// Package safety detects workplace safety violations in processed frames
package safety

import (
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/bytelocker/bytelocker/internal/analytics"
	"github.com/bytelocker/bytelocker/internal/detect"
	"github.com/bytelocker/bytelocker/internal/video"
)

// ViolationType classifies a safety violation
type ViolationType string

const (
	ViolationProximity  ViolationType = "proximity_violation"
	ViolationUnsafePose ViolationType = "unsafe_pose"
)

// Violation is a single flagged safety condition
type Violation struct {
	Type       ViolationType   `json:"type"`
	Location   analytics.Point `json:"location"`
	Confidence float64         `json:"confidence"`
}

// Pose is the external pose classifier's output vector
type Pose []float64

// PoseClassifier is the external pose model. The region of interest is
// handed over already resized to the classifier input size.
type PoseClassifier interface {
	Classify(roi image.Image) (Pose, error)
}

// UnsafeRule judges whether a classified pose is unsafe. The default rule
// treats every pose as safe; deployments plug in their own.
type UnsafeRule func(Pose) bool

// DefaultProximityThreshold is the centroid distance, in pixels, below
// which two detections violate proximity rules.
const DefaultProximityThreshold = 50

// poseInputSize is the square input edge expected by the pose classifier
const poseInputSize = 224

// Monitor checks each tick's detections for safety violations. It is
// stateless per frame; the mode is fixed at construction.
type Monitor struct {
	threshold  float64
	classifier PoseClassifier
	unsafe     UnsafeRule
	logger     *slog.Logger
}

// MonitorConfig configures a safety monitor. A nil Classifier selects
// pairwise proximity mode; a non-nil one selects pose mode.
type MonitorConfig struct {
	ProximityThreshold float64
	Classifier         PoseClassifier
	Unsafe             UnsafeRule
}

// NewMonitor creates a safety monitor
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.ProximityThreshold <= 0 {
		cfg.ProximityThreshold = DefaultProximityThreshold
	}
	if cfg.Unsafe == nil {
		cfg.Unsafe = func(Pose) bool { return false }
	}
	return &Monitor{
		threshold:  cfg.ProximityThreshold,
		classifier: cfg.Classifier,
		unsafe:     cfg.Unsafe,
		logger:     slog.Default().With("component", "safety_monitor"),
	}
}

// Monitor evaluates one tick's detections and returns flagged violations
func (m *Monitor) Monitor(frame *video.Frame, detections []detect.Detection) []Violation {
	if m.classifier == nil {
		return m.checkProximity(detections)
	}
	return m.checkPoses(frame, detections)
}

// checkProximity flags every unordered pair of distinct detections whose
// centroids are closer than the threshold
func (m *Monitor) checkProximity(detections []detect.Detection) []Violation {
	var violations []Violation
	for i := 0; i < len(detections); i++ {
		for j := i + 1; j < len(detections); j++ {
			if detections[i].BBox.CenterDistance(detections[j].BBox) < m.threshold {
				x, y := detections[i].BBox.Center()
				violations = append(violations, Violation{
					Type:       ViolationProximity,
					Location:   analytics.Point{X: x, Y: y},
					Confidence: detections[i].Confidence,
				})
			}
		}
	}
	return violations
}

// checkPoses crops each detection's region of interest and runs it through
// the external pose classifier. Empty crops are skipped, not errors.
func (m *Monitor) checkPoses(frame *video.Frame, detections []detect.Detection) []Violation {
	var violations []Violation
	for _, det := range detections {
		roi := frame.ROI(int(det.BBox.Left), int(det.BBox.Top), int(det.BBox.Right), int(det.BBox.Bottom))
		if roi.IsEmpty() {
			continue
		}

		resized := imaging.Resize(roi.Image(), poseInputSize, poseInputSize, imaging.Linear)
		pose, err := m.classifier.Classify(resized)
		if err != nil {
			m.logger.Warn("Pose classification failed", "error", err)
			continue
		}

		if m.unsafe(pose) {
			x, y := det.BBox.Center()
			violations = append(violations, Violation{
				Type:       ViolationUnsafePose,
				Location:   analytics.Point{X: x, Y: y},
				Confidence: det.Confidence,
			})
		}
	}
	return violations
}
