package analytics

import (
	"log/slog"

	"github.com/bytelocker/bytelocker/internal/detect"
)

// AnomalyType classifies a behavioral anomaly
type AnomalyType string

const (
	AnomalyRestrictedArea AnomalyType = "restricted_area_violation"
	AnomalySuddenMovement AnomalyType = "sudden_movement"
)

// Anomaly is a single flagged behavioral condition
type Anomaly struct {
	Type       AnomalyType `json:"type"`
	Location   Point       `json:"location"`
	Area       string      `json:"area,omitempty"`
	Confidence float64     `json:"confidence"`
}

// Polygon is a simple polygon given as an ordered vertex sequence,
// configured once at startup and immutable thereafter.
type Polygon struct {
	Name     string
	Vertices []Point
}

// Contains reports whether the point lies inside the polygon using the
// edge-crossing rule. The boundary behavior of this exact formulation is
// load-bearing: points on a vertex or edge resolve deterministically, and
// alerting tests depend on it, so keep the arithmetic as written.
func (p Polygon) Contains(x, y float64) bool {
	n := len(p.Vertices)
	if n < 3 {
		return false
	}

	inside := false
	p1x, p1y := p.Vertices[0].X, p.Vertices[0].Y
	for i := 1; i <= n; i++ {
		p2x, p2y := p.Vertices[i%n].X, p.Vertices[i%n].Y
		if y > min(p1y, p2y) && y <= max(p1y, p2y) && x <= max(p1x, p2x) {
			var xinters float64
			crosses := p1x == p2x
			if p1y != p2y {
				xinters = (y-p1y)*(p2x-p1x)/(p2y-p1y) + p1x
				crosses = crosses || x <= xinters
			}
			if crosses {
				inside = !inside
			}
		}
		p1x, p1y = p2x, p2y
	}
	return inside
}

// movementWindow bounds the sliding history of x-centroids
const movementWindow = 10

// suddenMovementThreshold is the per-tick x-delta, in pixels, above which
// movement is flagged.
const suddenMovementThreshold = 100

// BehaviorAnalyzer flags restricted-area entries and sudden movements.
// It keeps a bounded sliding window of past x-centroids, so one analyzer
// instance serves exactly one camera pipeline.
type BehaviorAnalyzer struct {
	history []float64
	logger  *slog.Logger
}

// NewBehaviorAnalyzer creates a behavior analyzer
func NewBehaviorAnalyzer() *BehaviorAnalyzer {
	return &BehaviorAnalyzer{
		logger: slog.Default().With("component", "behavior_analyzer"),
	}
}

// Analyze runs both behavior checks for one tick.
// Restricted-area violations are emitted per (detection, polygon) pair.
// The sudden-movement check compares history entries against current
// detections at the same index. That index alignment assumes a stable
// detection order across ticks and breaks down when counts vary; it is the
// documented behavior, kept as-is rather than silently repaired.
func (a *BehaviorAnalyzer) Analyze(detections []detect.Detection, areas []Polygon) []Anomaly {
	var anomalies []Anomaly

	for _, det := range detections {
		cx, cy := det.BBox.Center()
		for _, area := range areas {
			if area.Contains(cx, cy) {
				anomalies = append(anomalies, Anomaly{
					Type:       AnomalyRestrictedArea,
					Location:   Point{X: cx, Y: cy},
					Area:       area.Name,
					Confidence: det.Confidence,
				})
			}
		}
	}

	if len(a.history) > movementWindow {
		current := make([]float64, len(detections))
		for i, det := range detections {
			current[i], _ = det.BBox.Center()
		}

		recent := a.history[len(a.history)-2:]
		for i, hist := range recent {
			if i >= len(current) {
				break
			}
			if delta := current[i] - hist; delta > suddenMovementThreshold || delta < -suddenMovementThreshold {
				anomalies = append(anomalies, Anomaly{
					Type:       AnomalySuddenMovement,
					Location:   Point{X: current[i], Y: detections[i].BBox.Top},
					Confidence: detections[i].Confidence,
				})
			}
		}
	}

	if len(a.history) > movementWindow {
		a.history = a.history[len(a.history)-movementWindow:]
	}
	for _, det := range detections {
		cx, _ := det.BBox.Center()
		a.history = append(a.history, cx)
	}

	if len(anomalies) > 0 {
		a.logger.Debug("Anomalies flagged", "count", len(anomalies))
	}
	return anomalies
}

// HistoryLen exposes the current window size for inspection
func (a *BehaviorAnalyzer) HistoryLen() int {
	return len(a.history)
}
