package layout

import (
	"errors"
	"image"
	"math"
)

// ErrNotMeasured is returned when either side of a transform has no usable size yet.
// Callers must wait until the preview has been measured at least once.
var ErrNotMeasured = errors.New("layout: size not measured")

// Point is a position in pixels (preview or natural space, depending on context)
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in pixels
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Measured reports whether both dimensions are positive
func (s Size) Measured() bool {
	return s.Width > 0 && s.Height > 0
}

// Rect is an axis-aligned box: top-left corner plus size
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Min returns the top-left corner
func (r Rect) Min() Point {
	return Point{X: r.X, Y: r.Y}
}

// Contains reports whether p lies inside r (right and bottom edges excluded)
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Pixels rounds the rect to integer pixel bounds
func (r Rect) Pixels() image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.Width))
	y1 := int(math.Round(r.Y + r.Height))
	return image.Rect(x0, y0, x1, y1)
}

// ClampInto moves r so that it lies inside bounds (anchored at the origin).
// A rect larger than bounds is pinned to the top-left edge.
func (r Rect) ClampInto(bounds Size) Rect {
	r.X = clamp(r.X, 0, bounds.Width-r.Width)
	r.Y = clamp(r.Y, 0, bounds.Height-r.Height)
	return r
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// Transform maps preview-space coordinates onto natural (full-resolution) space.
// It is recomputed for every render and never cached across a layout change.
type Transform struct {
	SX float64
	SY float64
}

// Identity returns the transform used when rendering directly in preview space
func Identity() Transform {
	return Transform{SX: 1, SY: 1}
}

// NewTransform computes sx = Wn/Wp and sy = Hn/Hp
func NewTransform(natural, preview Size) (Transform, error) {
	if !natural.Measured() || !preview.Measured() {
		return Transform{}, ErrNotMeasured
	}
	return Transform{
		SX: natural.Width / preview.Width,
		SY: natural.Height / preview.Height,
	}, nil
}

// Point maps a preview position to natural space
func (t Transform) Point(p Point) Point {
	return Point{X: p.X * t.SX, Y: p.Y * t.SY}
}

// Size maps a preview size to natural space
func (t Transform) Size(s Size) Size {
	return Size{Width: s.Width * t.SX, Height: s.Height * t.SY}
}

// Rect maps a preview rect to natural space
func (t Transform) Rect(r Rect) Rect {
	return Rect{X: r.X * t.SX, Y: r.Y * t.SY, Width: r.Width * t.SX, Height: r.Height * t.SY}
}

// FontSize scales by the vertical factor so text keeps its proportion to row height
func (t Transform) FontSize(size float64) float64 {
	return size * t.SY
}

// Length scales a vertical length (band heights and similar)
func (t Transform) Length(v float64) float64 {
	return v * t.SY
}

// Inverse maps natural space back to preview space
func (t Transform) Inverse() Transform {
	if t.SX == 0 || t.SY == 0 {
		return Transform{}
	}
	return Transform{SX: 1 / t.SX, SY: 1 / t.SY}
}
