package analytics

import (
	"testing"
)

func TestDBSCAN_TwoClustersWithNoise(t *testing.T) {
	points := []Point{
		// Cluster around (0,0)
		{0, 0}, {1, 0}, {0, 1},
		// Cluster around (100,100)
		{100, 100}, {101, 100}, {100, 101}, {101, 101},
		// Noise
		{500, 500},
	}

	labels := dbscan(points, 5, 3)

	if len(labels) != len(points) {
		t.Fatalf("Expected %d labels, got %d", len(points), len(labels))
	}

	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("First cluster split: %v", labels[:3])
	}
	if labels[3] != labels[4] || labels[4] != labels[5] || labels[5] != labels[6] {
		t.Errorf("Second cluster split: %v", labels[3:7])
	}
	if labels[0] == labels[3] {
		t.Error("Distinct clusters share a label")
	}
	if labels[7] != noiseLabel {
		t.Errorf("Expected noise label for isolated point, got %d", labels[7])
	}
}

func TestDBSCAN_AllNoise(t *testing.T) {
	points := []Point{{0, 0}, {100, 0}, {200, 0}}

	labels := dbscan(points, 5, 2)

	for i, l := range labels {
		if l != noiseLabel {
			t.Errorf("Point %d should be noise, got label %d", i, l)
		}
	}
}

func TestDBSCAN_BorderPointJoinsCluster(t *testing.T) {
	// The last point neighbors only one core point but still joins its
	// cluster as a border point
	points := []Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {5, 0}}

	labels := dbscan(points, 4.5, 4)

	if labels[4] == noiseLabel {
		t.Error("Border point should be absorbed into the cluster")
	}
	if labels[4] != labels[0] {
		t.Errorf("Border point label %d differs from cluster label %d", labels[4], labels[0])
	}
}

func TestDBSCAN_Empty(t *testing.T) {
	if labels := dbscan(nil, 5, 3); len(labels) != 0 {
		t.Errorf("Expected no labels for no points, got %v", labels)
	}
}
