// Package transform converts geometry between native PDF space, display
// space and the local space of a shape group.
//
// Native space has its origin at the bottom-left corner of the page and y
// grows upwards. Display space has its origin at the top-left corner and y
// grows downwards; both use unscaled page units, the viewport scale maps
// display space onto screen pixels.
package transform

import (
	"math"

	"github.com/golang/geo/r2"
)

const Epsilon = 1e-9

// Rect is a rectangle in display space.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

func RectFromR2(r r2.Rect) Rect {
	if r.IsEmpty() {
		return Rect{}
	}
	return Rect{X: r.X.Lo, Y: r.Y.Lo, Width: r.X.Length(), Height: r.Y.Length()}
}

// R2 returns the rectangle as an r2.Rect in the same space.
func (r Rect) R2() r2.Rect {
	return r2.RectFromPoints(
		r2.Point{X: r.X, Y: r.Y},
		r2.Point{X: r.X + r.Width, Y: r.Y + r.Height},
	)
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

func (r Rect) Contains(p r2.Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

func (r Rect) Normalize() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

func (r Rect) ApproxEqual(o Rect, tol float64) bool {
	return math.Abs(r.X-o.X) <= tol &&
		math.Abs(r.Y-o.Y) <= tol &&
		math.Abs(r.Width-o.Width) <= tol &&
		math.Abs(r.Height-o.Height) <= tol
}

func DisplayPointFromNative(p r2.Point, pageHeight float64) r2.Point {
	return r2.Point{X: p.X, Y: pageHeight - p.Y}
}

func NativePointFromDisplay(p r2.Point, pageHeight float64) r2.Point {
	return r2.Point{X: p.X, Y: pageHeight - p.Y}
}

func DisplayRectFromNative(r r2.Rect, pageHeight float64) Rect {
	if r.IsEmpty() {
		return Rect{}
	}
	return Rect{
		X:      r.X.Lo,
		Y:      pageHeight - r.Y.Hi,
		Width:  r.X.Length(),
		Height: r.Y.Length(),
	}
}

func NativeRectFromDisplay(r Rect, pageHeight float64) r2.Rect {
	r = r.Normalize()
	return r2.RectFromPoints(
		r2.Point{X: r.X, Y: pageHeight - r.Bottom()},
		r2.Point{X: r.Right(), Y: pageHeight - r.Y},
	)
}

// NativeArray returns the rect as a PDF rectangle array [llx lly urx ury].
func NativeArray(r r2.Rect) []float64 {
	return []float64{r.X.Lo, r.Y.Lo, r.X.Hi, r.Y.Hi}
}

func NativeFromArray(arr []float64) (r2.Rect, bool) {
	if len(arr) < 4 {
		return r2.EmptyRect(), false
	}
	return r2.RectFromPoints(
		r2.Point{X: arr[0], Y: arr[1]},
		r2.Point{X: arr[2], Y: arr[3]},
	), true
}

// ApplyPageRotation maps a native rect [llx lly urx ury] on a rotated page
// into the unrotated page frame.
func ApplyPageRotation(rotate int, width, height float64, rect []float64) []float64 {
	switch ((rotate % 360) + 360) % 360 {
	case 90:
		return []float64{rect[1], width - rect[2], rect[3], width - rect[0]}
	case 180:
		return []float64{width - rect[2], height - rect[3], width - rect[0], height - rect[1]}
	case 270:
		return []float64{height - rect[3], rect[0], height - rect[1], rect[2]}
	}
	return rect
}

// BoundsOfPoints returns the display rect enclosing pts.
func BoundsOfPoints(pts []r2.Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := r2.RectFromPoints(pts...)
	return Rect{X: r.X.Lo, Y: r.Y.Lo, Width: r.X.Length(), Height: r.Y.Length()}
}

func (r Rect) IsZero() bool { return r == Rect{} }

// Union treats the zero Rect as empty.
func Union(a, b Rect) Rect {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	return RectFromR2(a.R2().Union(b.R2()))
}

// IsWithinOverlapThresh reports whether at least half of mark is covered by annot.
func IsWithinOverlapThresh(annot r2.Rect, mark r2.Rect) bool {
	markSize := getArea(mark)
	if markSize == 0 {
		return false
	}
	intersect := getArea(annot.Intersection(mark))

	return intersect/markSize >= 0.5
}

func getArea(r r2.Rect) float64 {
	if r.IsEmpty() {
		return 0
	}
	s := r.Size()
	return s.X * s.Y
}
