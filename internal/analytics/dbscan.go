// Package analytics provides crowd and behavior analysis over detections
package analytics

import "math"

// Point is a 2D position in frame pixel coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point
func (p Point) Distance(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// noiseLabel marks points not assigned to any cluster
const noiseLabel = -1

// dbscan performs density-based clustering over 2D points.
// Returns a cluster label per point; noise points are labelled -1.
func dbscan(points []Point, eps float64, minSamples int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = noiseLabel
	}

	cluster := 0
	for i := range points {
		if labels[i] != noiseLabel {
			continue
		}

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minSamples {
			continue
		}

		labels[i] = cluster
		expandCluster(points, labels, neighbors, cluster, eps, minSamples)
		cluster++
	}

	return labels
}

func regionQuery(points []Point, idx int, eps float64) []int {
	var neighbors []int
	for i := range points {
		if points[idx].Distance(points[i]) <= eps {
			neighbors = append(neighbors, i)
		}
	}
	return neighbors
}

func expandCluster(points []Point, labels, neighbors []int, cluster int, eps float64, minSamples int) {
	for i := 0; i < len(neighbors); i++ {
		idx := neighbors[i]
		if labels[idx] != noiseLabel {
			continue
		}
		labels[idx] = cluster

		next := regionQuery(points, idx, eps)
		if len(next) >= minSamples {
			neighbors = append(neighbors, next...)
		}
	}
}
