package video

import (
	"image"
	"image/color"
	"testing"
)

func TestFrame_ROI(t *testing.T) {
	f := NewFrame("cam", 10, 10)
	// Mark pixel (3,2) red
	f.Pixels[(2*10+3)*3] = 255

	roi := f.ROI(2, 1, 6, 5)
	if roi.Width != 4 || roi.Height != 4 {
		t.Fatalf("Expected 4x4 ROI, got %dx%d", roi.Width, roi.Height)
	}
	// (3,2) in the frame is (1,1) in the ROI
	if roi.Pixels[(1*4+1)*3] != 255 {
		t.Error("ROI did not carry over pixel data")
	}

	// Crop is a copy: mutating it leaves the frame intact
	roi.Pixels[0] = 42
	if f.Pixels[(1*10+2)*3] == 42 {
		t.Error("ROI shares storage with the source frame")
	}
}

func TestFrame_ROI_ClampsToBounds(t *testing.T) {
	f := NewFrame("cam", 8, 8)

	roi := f.ROI(-5, -5, 20, 20)
	if roi.Width != 8 || roi.Height != 8 {
		t.Errorf("Expected clamped 8x8 ROI, got %dx%d", roi.Width, roi.Height)
	}
}

func TestFrame_ROI_DegenerateIsEmpty(t *testing.T) {
	f := NewFrame("cam", 8, 8)

	roi := f.ROI(6, 6, 6, 6)
	if !roi.IsEmpty() {
		t.Error("Zero-area crop should be empty")
	}

	inverted := f.ROI(6, 6, 2, 2)
	if !inverted.IsEmpty() {
		t.Error("Inverted crop should be empty")
	}
}

func TestFrame_Clone(t *testing.T) {
	f := NewFrame("cam", 4, 4)
	f.Pixels[0] = 9

	c := f.Clone()
	c.Pixels[0] = 77
	if f.Pixels[0] != 9 {
		t.Error("Clone shares storage with the original")
	}
	if c.SourceID != f.SourceID || c.Width != f.Width || c.Height != f.Height {
		t.Error("Clone lost metadata")
	}
}

func TestFrame_ImageRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	f := FromImage("cam", img)
	if f.Width != 3 || f.Height != 2 {
		t.Fatalf("Expected 3x2 frame, got %dx%d", f.Width, f.Height)
	}
	idx := (0*3 + 1) * 3
	if f.Pixels[idx] != 10 || f.Pixels[idx+1] != 20 || f.Pixels[idx+2] != 30 {
		t.Errorf("Pixel mismatch: %v", f.Pixels[idx:idx+3])
	}

	back := f.Image()
	r, g, b, _ := back.At(1, 0).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("Round trip lost pixel data: %d %d %d", r>>8, g>>8, b>>8)
	}
}
