package transform

import (
	"github.com/golang/geo/r2"
)

// Group is the translate + independent x/y scale attached to a shape group.
// A zero scale is treated as 1.
type Group struct {
	X      float64
	Y      float64
	ScaleX float64
	ScaleY float64
}

var Identity = Group{ScaleX: 1, ScaleY: 1}

func (g Group) Normalized() Group {
	g.ScaleX = orOne(g.ScaleX)
	g.ScaleY = orOne(g.ScaleY)
	return g
}

// Apply maps a point from the group's local space into its parent space.
func (g Group) Apply(p r2.Point) r2.Point {
	g = g.Normalized()
	return r2.Point{X: g.X + p.X*g.ScaleX, Y: g.Y + p.Y*g.ScaleY}
}

// ApplyAll maps a flat [x0 y0 x1 y1 ...] list into parent space.
func (g Group) ApplyAll(flat []float64) []r2.Point {
	pts := make([]r2.Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		pts = append(pts, g.Apply(r2.Point{X: flat[i], Y: flat[i+1]}))
	}
	return pts
}

func (g Group) ApplyRect(r Rect) Rect {
	a := g.Apply(r2.Point{X: r.X, Y: r.Y})
	b := g.Apply(r2.Point{X: r.Right(), Y: r.Bottom()})
	return BoundsOfPoints([]r2.Point{a, b})
}

// Invert maps a point from parent space back into the group's local space.
func (g Group) Invert(p r2.Point) r2.Point {
	g = g.Normalized()
	return r2.Point{X: (p.X - g.X) / g.ScaleX, Y: (p.Y - g.Y) / g.ScaleY}
}

// Compose returns the transform equivalent to applying child first, then g.
func (g Group) Compose(child Group) Group {
	g = g.Normalized()
	child = child.Normalized()
	return Group{
		X:      g.X + child.X*g.ScaleX,
		Y:      g.Y + child.Y*g.ScaleY,
		ScaleX: g.ScaleX * child.ScaleX,
		ScaleY: g.ScaleY * child.ScaleY,
	}
}

// Refit returns the transform that maps the group's content from the
// display rect from onto the display rect to.
func (g Group) Refit(from, to Rect) Group {
	g = g.Normalized()
	fx, fy := 1.0, 1.0
	if from.Width > Epsilon {
		fx = to.Width / from.Width
	}
	if from.Height > Epsilon {
		fy = to.Height / from.Height
	}
	return Group{
		X:      to.X + (g.X-from.X)*fx,
		Y:      to.Y + (g.Y-from.Y)*fy,
		ScaleX: orOne(g.ScaleX * fx),
		ScaleY: orOne(g.ScaleY * fy),
	}
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// Viewport is the page geometry reported by the viewer.
type Viewport struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Scale    float64 `json:"scale"`
	Rotation int     `json:"rotation"`
}

func (v Viewport) scale() float64 {
	return orOne(v.Scale)
}

// PageWidth is the unscaled width of the page in display space.
func (v Viewport) PageWidth() float64 { return v.Width / v.scale() }

// PageHeight is the unscaled height of the page in display space.
func (v Viewport) PageHeight() float64 { return v.Height / v.scale() }

// FromScreen maps a screen pixel position on the page into display space.
func (v Viewport) FromScreen(p r2.Point) r2.Point {
	return p.Mul(1 / v.scale())
}

func (v Viewport) ToScreen(p r2.Point) r2.Point {
	return p.Mul(v.scale())
}

func (v Viewport) RectToScreen(r Rect) Rect {
	s := v.scale()
	return Rect{X: r.X * s, Y: r.Y * s, Width: r.Width * s, Height: r.Height * s}
}
