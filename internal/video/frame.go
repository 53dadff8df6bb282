// Package video provides frame capture and buffering for camera pipelines
package video

import (
	"image"
	"time"
)

// Frame represents a single captured video frame.
// Pixels holds 8-bit RGB data in row-major order (len == Width*Height*3).
// A frame is immutable once produced; stages that need to annotate or crop
// work on their own copy.
type Frame struct {
	SourceID  string
	Width     int
	Height    int
	Pixels    []byte
	Timestamp time.Time
}

// NewFrame allocates a blank frame for the given dimensions
func NewFrame(sourceID string, width, height int) *Frame {
	return &Frame{
		SourceID:  sourceID,
		Width:     width,
		Height:    height,
		Pixels:    make([]byte, width*height*3),
		Timestamp: time.Now(),
	}
}

// Clone returns a deep copy of the frame
func (f *Frame) Clone() *Frame {
	pixels := make([]byte, len(f.Pixels))
	copy(pixels, f.Pixels)
	return &Frame{
		SourceID:  f.SourceID,
		Width:     f.Width,
		Height:    f.Height,
		Pixels:    pixels,
		Timestamp: f.Timestamp,
	}
}

// ROI extracts a copy of the sub-rectangle bounded by the given pixel
// coordinates, clamped to the frame. Degenerate rectangles yield a frame
// with no pixels; callers are expected to check IsEmpty.
func (f *Frame) ROI(left, top, right, bottom int) *Frame {
	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	if right > f.Width {
		right = f.Width
	}
	if bottom > f.Height {
		bottom = f.Height
	}
	if right <= left || bottom <= top {
		return &Frame{SourceID: f.SourceID, Timestamp: f.Timestamp}
	}

	w, h := right-left, bottom-top
	roi := &Frame{
		SourceID:  f.SourceID,
		Width:     w,
		Height:    h,
		Pixels:    make([]byte, w*h*3),
		Timestamp: f.Timestamp,
	}
	for y := 0; y < h; y++ {
		src := ((top+y)*f.Width + left) * 3
		dst := y * w * 3
		copy(roi.Pixels[dst:dst+w*3], f.Pixels[src:src+w*3])
	}
	return roi
}

// IsEmpty reports whether the frame carries no pixel data
func (f *Frame) IsEmpty() bool {
	return f == nil || len(f.Pixels) == 0
}

// Image converts the frame to an image.Image for libraries that consume
// the standard interface
func (f *Frame) Image() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			src := (y*f.Width + x) * 3
			dst := img.PixOffset(x, y)
			img.Pix[dst] = f.Pixels[src]
			img.Pix[dst+1] = f.Pixels[src+1]
			img.Pix[dst+2] = f.Pixels[src+2]
			img.Pix[dst+3] = 0xff
		}
	}
	return img
}

// FromImage builds a frame from an image.Image, normalizing to 8-bit RGB
func FromImage(sourceID string, img image.Image) *Frame {
	bounds := img.Bounds()
	f := NewFrame(sourceID, bounds.Dx(), bounds.Dy())
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			f.Pixels[i] = byte(r >> 8)
			f.Pixels[i+1] = byte(g >> 8)
			f.Pixels[i+2] = byte(b >> 8)
			i += 3
		}
	}
	return f
}
