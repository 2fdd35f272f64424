package editor

import (
	"github.com/golang/geo/r2"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/scene"
	"github.com/mgmeyers/pdfannotator/transform"
)

// stroke is an editor that records the pointer path of a drag.
type stroke struct {
	base
	line *scene.Node
	// finish commits the session once the pointer is released.
	finish func(g *scene.Node, line *scene.Node)
}

func (e *stroke) Activate(stage *scene.Stage, def annotation.Definition, _ string) {
	e.line = nil
	e.attach(stage, def, e)
}

func (e *stroke) HandleEvent(stage *scene.Stage, ev scene.Event) {
	switch ev.Type {
	case scene.PointerDown:
		g := e.begin()
		e.line = &scene.Node{Kind: scene.KindLine, Attrs: scene.Attrs{
			Points:      []float64{ev.Point.X, ev.Point.Y},
			Stroke:      e.color(),
			StrokeWidth: e.strokeWidth(),
			Opacity:     e.opacity(),
		}}
		g.Add(e.line)
	case scene.PointerMove:
		if e.line == nil {
			return
		}
		e.line.Attrs.Points = append(e.line.Attrs.Points, ev.Point.X, ev.Point.Y)
	case scene.PointerUp:
		if e.line == nil || e.session == nil {
			return
		}
		line := e.line
		e.line = nil
		line.Attrs.Points = append(line.Attrs.Points, ev.Point.X, ev.Point.Y)
		extent := transform.BoundsOfPoints(transform.Identity.ApplyAll(line.Attrs.Points))
		if extent.Width+extent.Height < minSize {
			e.discard()
			return
		}
		e.finish(e.session, line)
	case scene.KeyUp:
		if ev.Key == scene.KeyEscape {
			e.line = nil
			e.discard()
		}
	}
}

func NewFreeHand(opts Options) Editor {
	e := &stroke{base: newBase(annotation.FreeHand, opts)}
	e.finish = func(g *scene.Node, _ *scene.Node) {
		e.commit(g, "")
	}
	return e
}

// NewFreeHighlight returns the editor of free highlights. When the page has a
// text layer, the stroke snaps to the text spans it covers.
func NewFreeHighlight(opts Options) Editor {
	e := &stroke{base: newBase(annotation.FreeHighlight, opts)}
	e.finish = func(g *scene.Node, line *scene.Node) {
		if spans := e.coveredSpans(line); len(spans) > 0 {
			g.Children = nil
			for _, s := range spans {
				g.Add(&scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{
					X: s.X, Y: s.Y, Width: s.Width, Height: s.Height,
					Fill: e.color(), Opacity: e.opacity(),
				}})
			}
		}
		e.commit(g, "")
	}
	return e
}

func (e *stroke) coveredSpans(line *scene.Node) []transform.Rect {
	if e.opts.TextLayer == nil {
		return nil
	}
	bounds := line.LocalBounds().R2()
	var out []transform.Rect
	for _, span := range e.opts.TextLayer.Spans(e.opts.Page) {
		if transform.IsWithinOverlapThresh(bounds, span.R2()) {
			out = append(out, span)
		}
	}
	return out
}

// arrow drags a straight line from the pointer down point to the release
// point, with a head at the release point.
type arrow struct {
	base
	start r2.Point
	node  *scene.Node
}

func NewArrow(opts Options) Editor {
	return &arrow{base: newBase(annotation.Arrow, opts)}
}

func (e *arrow) Activate(stage *scene.Stage, def annotation.Definition, _ string) {
	e.node = nil
	e.attach(stage, def, e)
}

func (e *arrow) HandleEvent(stage *scene.Stage, ev scene.Event) {
	switch ev.Type {
	case scene.PointerDown:
		e.start = ev.Point
		e.node = &scene.Node{Kind: scene.KindArrow, Attrs: scene.Attrs{
			Points:        []float64{ev.Point.X, ev.Point.Y, ev.Point.X, ev.Point.Y},
			PointerLength: e.opts.PointerLength,
			PointerWidth:  e.opts.PointerWidth,
			Stroke:        e.color(),
			Fill:          e.color(),
			StrokeWidth:   e.strokeWidth(),
			Opacity:       e.opacity(),
		}}
		e.begin().Add(e.node)
	case scene.PointerMove:
		if e.node == nil {
			return
		}
		e.node.Attrs.Points[2], e.node.Attrs.Points[3] = ev.Point.X, ev.Point.Y
	case scene.PointerUp:
		if e.node == nil || e.session == nil {
			return
		}
		n := e.node
		e.node = nil
		n.Attrs.Points[2], n.Attrs.Points[3] = ev.Point.X, ev.Point.Y
		if ev.Point.Sub(e.start).Norm() < minSize {
			e.discard()
			return
		}
		e.commit(e.session, "")
	case scene.KeyUp:
		if ev.Key == scene.KeyEscape {
			e.node = nil
			e.discard()
		}
	}
}
