// Package detect normalizes external model output into canonical detections
package detect

import (
	"math"
)

// UnknownIdentity is the identity assigned to faces with no match in the
// known-identity store.
const UnknownIdentity = "Unknown"

// BBox is an axis-aligned bounding box in pixel coordinates
type BBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Center returns the centroid of the box
func (b BBox) Center() (float64, float64) {
	return (b.Left + b.Right) / 2, (b.Top + b.Bottom) / 2
}

// Width returns the box width
func (b BBox) Width() float64 {
	return b.Right - b.Left
}

// Height returns the box height
func (b BBox) Height() float64 {
	return b.Bottom - b.Top
}

// Area returns the box area
func (b BBox) Area() float64 {
	return b.Width() * b.Height()
}

// CenterDistance returns the Euclidean distance between box centroids
func (b BBox) CenterDistance(other BBox) float64 {
	x1, y1 := b.Center()
	x2, y2 := other.Center()
	return math.Hypot(x1-x2, y1-y2)
}

// Detection is a single localized entity with optional identity.
// Produced fresh each processed frame; consumed read-only by all analyzers
// in the same tick.
type Detection struct {
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
	Identity   string  `json:"identity,omitempty"`
}

// ObjectClass identifies what the localizer found
type ObjectClass string

const (
	ClassPerson ObjectClass = "person"
	ClassFace   ObjectClass = "face"
)

// RawObject is a localizer result before normalization
type RawObject struct {
	BBox       BBox
	Class      ObjectClass
	Confidence float64
}
