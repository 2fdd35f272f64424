package editor

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/scene"
	"github.com/mgmeyers/pdfannotator/transform"
)

// dragShape is an editor whose shape is defined by the rectangle spanned by a
// pointer drag.
type dragShape struct {
	base
	start  r2.Point
	active bool
	// build fills the session group for the dragged rect.
	build func(g *scene.Node, r transform.Rect)
}

func (e *dragShape) Activate(stage *scene.Stage, def annotation.Definition, _ string) {
	e.active = false
	e.attach(stage, def, e)
}

func (e *dragShape) HandleEvent(stage *scene.Stage, ev scene.Event) {
	switch ev.Type {
	case scene.PointerDown:
		e.start = ev.Point
		e.active = true
		e.build(e.begin(), transform.Rect{X: ev.Point.X, Y: ev.Point.Y})
	case scene.PointerMove:
		if !e.active || e.session == nil {
			return
		}
		g := e.session
		g.Children = nil
		e.build(g, dragRect(e.start, ev.Point))
	case scene.PointerUp:
		if !e.active || e.session == nil {
			return
		}
		e.active = false
		r := dragRect(e.start, ev.Point)
		if r.Width < minSize || r.Height < minSize {
			e.discard()
			return
		}
		g := e.session
		g.Children = nil
		e.build(g, r)
		e.commit(g, "")
	case scene.KeyUp:
		if ev.Key == scene.KeyEscape {
			e.active = false
			e.discard()
		}
	}
}

func dragRect(a, b r2.Point) transform.Rect {
	return transform.Rect{X: a.X, Y: a.Y, Width: b.X - a.X, Height: b.Y - a.Y}.Normalize()
}

func NewRectangle(opts Options) Editor {
	e := &dragShape{base: newBase(annotation.Rectangle, opts)}
	e.build = func(g *scene.Node, r transform.Rect) {
		g.Add(&scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{
			X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
			Stroke: e.color(), StrokeWidth: e.strokeWidth(), Opacity: e.opacity(),
		}})
	}
	return e
}

func NewCircle(opts Options) Editor {
	e := &dragShape{base: newBase(annotation.Circle, opts)}
	e.build = func(g *scene.Node, r transform.Rect) {
		g.Add(&scene.Node{Kind: scene.KindEllipse, Attrs: scene.Attrs{
			X: r.X + r.Width/2, Y: r.Y + r.Height/2, RadiusX: r.Width / 2, RadiusY: r.Height / 2,
			Stroke: e.color(), StrokeWidth: e.strokeWidth(), Opacity: e.opacity(),
		}})
	}
	return e
}

// Scallop geometry of cloud outlines.
const (
	CloudArcLength = 16.0
	cloudArcSteps  = 6
)

func NewCloud(opts Options) Editor {
	e := &dragShape{base: newBase(annotation.Cloud, opts)}
	e.build = func(g *scene.Node, r transform.Rect) {
		g.Add(&scene.Node{Kind: scene.KindPath, Attrs: scene.Attrs{
			Points: CloudPoints(r, CloudArcLength), Closed: true,
			Stroke: e.color(), StrokeWidth: e.strokeWidth(), Opacity: e.opacity(),
		}})
	}
	return e
}

// CloudPoints traces a scalloped outline around r clockwise, starting at the
// top left corner. Every scallop is a half circle bulging outward whose chord
// is close to arc long.
func CloudPoints(r transform.Rect, arc float64) []float64 {
	corners := []r2.Point{
		{X: r.X, Y: r.Y},
		{X: r.Right(), Y: r.Y},
		{X: r.Right(), Y: r.Bottom()},
		{X: r.X, Y: r.Bottom()},
	}
	var out []float64
	for i := range corners {
		a, b := corners[i], corners[(i+1)%len(corners)]
		edge := b.Sub(a)
		length := edge.Norm()
		if length < transform.Epsilon {
			continue
		}
		n := int(math.Max(1, math.Round(length/arc)))
		dir := edge.Mul(1 / length)
		// outward normal for a clockwise walk with y pointing down
		normal := r2.Point{X: dir.Y, Y: -dir.X}
		chord := length / float64(n)
		radius := chord / 2
		for j := 0; j < n; j++ {
			mid := a.Add(dir.Mul(chord*float64(j) + radius))
			for k := 0; k < cloudArcSteps; k++ {
				theta := math.Pi * float64(k) / cloudArcSteps
				p := mid.Add(dir.Mul(-math.Cos(theta) * radius)).Add(normal.Mul(math.Sin(theta) * radius))
				out = append(out, p.X, p.Y)
			}
		}
	}
	return out
}
