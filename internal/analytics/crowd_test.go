package analytics

import (
	"math"
	"testing"

	"github.com/bytelocker/bytelocker/internal/detect"
)

func personAt(cx, cy float64) detect.Detection {
	return detect.Detection{
		BBox:       detect.BBox{Left: cx - 10, Top: cy - 10, Right: cx + 10, Bottom: cy + 10},
		Confidence: 0.9,
	}
}

func TestCrowdAnalyzer_EmptySkipsClustering(t *testing.T) {
	a := NewCrowdAnalyzer(CrowdConfig{})

	invoked := false
	a.clusterFn = func(points []Point, eps float64, minSamples int) []int {
		invoked = true
		return dbscan(points, eps, minSamples)
	}

	result := a.Analyze(nil)

	if invoked {
		t.Error("Clustering should not run for zero detections")
	}
	if result.Density != 0 {
		t.Errorf("Expected zero density, got %f", result.Density)
	}
	if result.PeopleCount != 0 {
		t.Errorf("Expected zero people, got %d", result.PeopleCount)
	}
	if result.Hotspots == nil || len(result.Hotspots) != 0 {
		t.Errorf("Expected empty hotspot slice, got %v", result.Hotspots)
	}
}

func TestCrowdAnalyzer_SingleCluster(t *testing.T) {
	a := NewCrowdAnalyzer(CrowdConfig{Eps: 30, MinSamples: 3, FrameWidth: 640, FrameHeight: 480})

	detections := []detect.Detection{
		personAt(100, 100),
		personAt(110, 100),
		personAt(100, 110),
		personAt(110, 110),
	}

	result := a.Analyze(detections)

	if result.PeopleCount != 4 {
		t.Errorf("Expected 4 people, got %d", result.PeopleCount)
	}
	if len(result.Hotspots) != 1 {
		t.Fatalf("Expected 1 hotspot, got %d", len(result.Hotspots))
	}
	hs := result.Hotspots[0]
	if hs.Size != 4 {
		t.Errorf("Expected hotspot of 4, got %d", hs.Size)
	}
	if math.Abs(hs.Center.X-105) > 1e-9 || math.Abs(hs.Center.Y-105) > 1e-9 {
		t.Errorf("Expected hotspot center (105,105), got (%f,%f)", hs.Center.X, hs.Center.Y)
	}

	wantDensity := 4.0 / (640.0 * 480.0) * 1e6
	if math.Abs(result.Density-wantDensity) > 1e-9 {
		t.Errorf("Expected density %f, got %f", wantDensity, result.Density)
	}
}

func TestCrowdAnalyzer_NoiseCountedButNotClustered(t *testing.T) {
	a := NewCrowdAnalyzer(CrowdConfig{Eps: 30, MinSamples: 3})

	detections := []detect.Detection{
		personAt(100, 100),
		personAt(110, 100),
		personAt(100, 110),
		personAt(500, 400), // isolated
	}

	result := a.Analyze(detections)

	if result.PeopleCount != 4 {
		t.Errorf("Expected all 4 detections counted, got %d", result.PeopleCount)
	}
	if len(result.Hotspots) != 1 {
		t.Fatalf("Expected 1 hotspot, got %d", len(result.Hotspots))
	}
	if result.Hotspots[0].Size != 3 {
		t.Errorf("Expected hotspot of 3 excluding noise, got %d", result.Hotspots[0].Size)
	}
}

func TestCrowdAnalyzer_BelowMinSamplesNoHotspot(t *testing.T) {
	a := NewCrowdAnalyzer(CrowdConfig{Eps: 30, MinSamples: 3})

	detections := []detect.Detection{
		personAt(100, 100),
		personAt(110, 100),
	}

	result := a.Analyze(detections)

	if len(result.Hotspots) != 0 {
		t.Errorf("Expected no hotspots below min samples, got %d", len(result.Hotspots))
	}
	if result.PeopleCount != 2 {
		t.Errorf("Expected 2 people, got %d", result.PeopleCount)
	}
}

func TestCrowdAnalyzer_CurrentReflectsLastAnalysis(t *testing.T) {
	a := NewCrowdAnalyzer(CrowdConfig{})

	a.Analyze([]detect.Detection{personAt(50, 50)})
	if got := a.Current().PeopleCount; got != 1 {
		t.Errorf("Expected current people count 1, got %d", got)
	}

	a.Analyze(nil)
	if got := a.Current().PeopleCount; got != 0 {
		t.Errorf("Expected current people count 0 after empty tick, got %d", got)
	}
}
