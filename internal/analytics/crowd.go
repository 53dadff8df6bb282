package analytics

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bytelocker/bytelocker/internal/detect"
)

// densityScale converts the raw per-pixel density (count / frame area) to
// the scale the alerting thresholds are defined against. A density of 1.0
// on this scale is roughly one person per megapixel.
const densityScale = 1e6

// Hotspot is a spatial cluster of detection centroids
type Hotspot struct {
	Center Point `json:"center"`
	Size   int   `json:"size"`
}

// CrowdResult holds one tick's crowd analysis. Only the most recent result
// is retained in memory; history lives in the persistence sink.
type CrowdResult struct {
	Density     float64   `json:"density"`
	PeopleCount int       `json:"people_count"`
	Hotspots    []Hotspot `json:"hotspots"`
	Timestamp   time.Time `json:"timestamp"`
}

// CrowdAnalyzer clusters detection centroids into density hotspots.
// Stateless across ticks apart from the most recent result, which the API
// can poll without re-triggering analysis.
type CrowdAnalyzer struct {
	eps         float64
	minSamples  int
	frameWidth  int
	frameHeight int

	// clusterFn is swappable for tests
	clusterFn func(points []Point, eps float64, minSamples int) []int

	mu      sync.RWMutex
	current CrowdResult
	logger  *slog.Logger
}

// CrowdConfig configures a crowd analyzer
type CrowdConfig struct {
	Eps         float64
	MinSamples  int
	FrameWidth  int
	FrameHeight int
}

// NewCrowdAnalyzer creates a crowd analyzer for one camera
func NewCrowdAnalyzer(cfg CrowdConfig) *CrowdAnalyzer {
	if cfg.Eps <= 0 {
		cfg.Eps = 30
	}
	if cfg.MinSamples < 1 {
		cfg.MinSamples = 3
	}
	if cfg.FrameWidth <= 0 {
		cfg.FrameWidth = 640
	}
	if cfg.FrameHeight <= 0 {
		cfg.FrameHeight = 480
	}
	return &CrowdAnalyzer{
		eps:         cfg.Eps,
		minSamples:  cfg.MinSamples,
		frameWidth:  cfg.FrameWidth,
		frameHeight: cfg.FrameHeight,
		clusterFn:   dbscan,
		logger:      slog.Default().With("component", "crowd_analyzer"),
	}
}

// Analyze computes crowd density and hotspots for one tick's detections.
// Zero detections short-circuit without invoking the clustering pass.
func (a *CrowdAnalyzer) Analyze(detections []detect.Detection) CrowdResult {
	now := time.Now()

	if len(detections) == 0 {
		result := CrowdResult{Density: 0.0, Hotspots: []Hotspot{}, Timestamp: now}
		a.setCurrent(result)
		return result
	}

	points := make([]Point, len(detections))
	for i, d := range detections {
		x, y := d.BBox.Center()
		points[i] = Point{X: x, Y: y}
	}

	labels := a.clusterFn(points, a.eps, a.minSamples)

	// Noise points are excluded from hotspots but still counted in density
	clusterPoints := make(map[int][]Point)
	for i, label := range labels {
		if label == noiseLabel {
			continue
		}
		clusterPoints[label] = append(clusterPoints[label], points[i])
	}

	hotspots := make([]Hotspot, 0, len(clusterPoints))
	for label := 0; label < len(labels); label++ {
		members, ok := clusterPoints[label]
		if !ok {
			continue
		}
		var cx, cy float64
		for _, p := range members {
			cx += p.X
			cy += p.Y
		}
		n := float64(len(members))
		hotspots = append(hotspots, Hotspot{
			Center: Point{X: cx / n, Y: cy / n},
			Size:   len(members),
		})
	}

	density := float64(len(detections)) / float64(a.frameWidth*a.frameHeight) * densityScale

	result := CrowdResult{
		Density:     density,
		PeopleCount: len(detections),
		Hotspots:    hotspots,
		Timestamp:   now,
	}
	a.setCurrent(result)

	a.logger.Debug("Crowd analyzed", "people", result.PeopleCount, "density", result.Density, "hotspots", len(hotspots))
	return result
}

// Current returns the most recent analysis without re-triggering it
func (a *CrowdAnalyzer) Current() CrowdResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

func (a *CrowdAnalyzer) setCurrent(r CrowdResult) {
	a.mu.Lock()
	a.current = r
	a.mu.Unlock()
}
