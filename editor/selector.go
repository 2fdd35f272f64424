package editor

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/pdfannotator/scene"
	"github.com/mgmeyers/pdfannotator/transform"
)

type SelectorState int

const (
	StateIdle SelectorState = iota
	StateHover
	StateSelected
	StateTransforming
)

func (s SelectorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHover:
		return "hover"
	case StateSelected:
		return "selected"
	case StateTransforming:
		return "transforming"
	}
	return "unknown"
}

// Anchor is a grip of the selection chrome.
type Anchor int

const (
	AnchorNone Anchor = iota
	AnchorBody
	AnchorTopLeft
	AnchorTop
	AnchorTopRight
	AnchorRight
	AnchorBottomRight
	AnchorBottom
	AnchorBottomLeft
	AnchorLeft
)

// Hit tolerances in display units.
const (
	HitTolerance    = 4.0
	AnchorTolerance = 6.0
	anchorSize      = 6.0
)

type SelectorHooks struct {
	// Selected reports a selection change; id is empty when cleared.
	Selected func(id string)
	// Changing fires on every pointer move of a transform.
	Changing func(id string)
	// Changed reports a committed move or resize.
	Changed func(id, group string, rect transform.Rect)
	// Delete is a delete request for the selected group.
	Delete func(id string)
}

// Selector moves, resizes and deletes committed shape groups.
type Selector struct {
	hooks SelectorHooks
	log   logrus.FieldLogger

	stage    *scene.Stage
	state    SelectorState
	selected *scene.Node
	hovered  *scene.Node

	anchor     Anchor
	startPoint r2.Point
	startRect  transform.Rect
	startGroup transform.Group
}

func NewSelector(hooks SelectorHooks, log logrus.FieldLogger) *Selector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Selector{hooks: hooks, log: log.WithField("component", "selector")}
}

func (s *Selector) State() SelectorState { return s.state }

// SelectedID returns the id of the selected group, if any.
func (s *Selector) SelectedID() string {
	if s.selected == nil {
		return ""
	}
	return s.selected.ID
}

// Activate routes the stage's gestures to the selector. A nil or destroyed
// stage is ignored.
func (s *Selector) Activate(stage *scene.Stage) {
	if stage == nil || stage.Destroyed() {
		return
	}
	if s.stage != nil && s.stage != stage {
		s.reset()
	}
	s.stage = stage
	stage.SetHandler(s)
}

// Select selects the group with id on stage without firing the Selected hook.
func (s *Selector) Select(stage *scene.Stage, id string) bool {
	if stage == nil || stage.Destroyed() {
		return false
	}
	g := stage.FindGroup(id)
	if g == nil {
		return false
	}
	if s.stage != nil && s.stage != stage {
		s.reset()
	}
	s.stage = stage
	s.pick(g)
	return true
}

// Clear drops the selection without firing the Selected hook.
func (s *Selector) Clear() {
	s.reset()
}

func (s *Selector) reset() {
	if s.stage != nil {
		s.stage.ClearChrome()
	}
	s.selected = nil
	s.hovered = nil
	s.anchor = AnchorNone
	s.state = StateIdle
}

func (s *Selector) pick(g *scene.Node) {
	s.selected = g
	s.hovered = nil
	s.state = StateSelected
	s.drawChrome()
}

func (s *Selector) HandleEvent(stage *scene.Stage, ev scene.Event) {
	if stage != s.stage {
		s.reset()
		s.stage = stage
	}
	if s.selected != nil && s.selected.Parent() == nil {
		// the group was removed underneath us
		s.reset()
	}

	switch ev.Type {
	case scene.PointerMove:
		s.onMove(ev.Point)
	case scene.PointerDown:
		s.onDown(ev.Point)
	case scene.PointerUp:
		s.onUp()
	case scene.KeyUp:
		switch ev.Key {
		case scene.KeyDelete, "Backspace":
			if s.state == StateSelected && s.hooks.Delete != nil {
				id := s.selected.ID
				s.reset()
				s.hooks.Delete(id)
			}
		case scene.KeyEscape:
			if s.state == StateTransforming {
				s.selected.SetTransform(s.startGroup)
			}
			if s.selected != nil {
				s.reset()
				s.fireSelected("")
			}
		}
	}
}

func (s *Selector) onMove(p r2.Point) {
	switch s.state {
	case StateIdle, StateHover:
		if g := s.stage.HitTest(p, HitTolerance); g != nil {
			s.hovered = g
			s.state = StateHover
		} else {
			s.hovered = nil
			s.state = StateIdle
		}
	case StateTransforming:
		next := ResizeRect(s.startRect, s.anchor, p.Sub(s.startPoint))
		s.selected.SetTransform(s.startGroup.Refit(s.startRect, next))
		s.drawChrome()
		if s.hooks.Changing != nil {
			s.hooks.Changing(s.selected.ID)
		}
	}
}

func (s *Selector) onDown(p r2.Point) {
	if s.state == StateSelected {
		rect := s.selected.ClientRect()
		anchor := AnchorAt(rect, p, AnchorTolerance)
		if anchor != AnchorNone {
			s.anchor = anchor
			s.startPoint = p
			s.startRect = rect
			s.startGroup = s.selected.Transform()
			s.state = StateTransforming
			return
		}
	}

	g := s.stage.HitTest(p, HitTolerance)
	if g == nil {
		if s.selected != nil {
			s.reset()
			s.fireSelected("")
		}
		return
	}
	if g != s.selected {
		s.pick(g)
		s.fireSelected(g.ID)
	}
	s.anchor = AnchorBody
	s.startPoint = p
	s.startRect = g.ClientRect()
	s.startGroup = g.Transform()
	s.state = StateTransforming
}

func (s *Selector) onUp() {
	if s.state != StateTransforming {
		return
	}
	s.state = StateSelected
	g := s.selected
	if g.Transform() == s.startGroup {
		return
	}
	serialized, err := scene.Marshal(g)
	if err != nil {
		s.log.WithError(err).WithField("id", g.ID).Warn("could not serialize transformed group")
		return
	}
	if s.hooks.Changed != nil {
		s.hooks.Changed(g.ID, serialized, g.ClientRect())
	}
}

func (s *Selector) fireSelected(id string) {
	if s.hooks.Selected != nil {
		s.hooks.Selected(id)
	}
}

func (s *Selector) drawChrome() {
	if s.stage == nil || s.selected == nil {
		return
	}
	r := s.selected.ClientRect()
	chrome := scene.NewGroup(s.selected.ID, scene.ChromeName)
	chrome.Add(&scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{
		X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, Stroke: "#1677ff", StrokeWidth: 1,
	}})
	for a := AnchorTopLeft; a <= AnchorLeft; a++ {
		p := anchorPoint(r, a)
		chrome.Add(&scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{
			X: p.X - anchorSize/2, Y: p.Y - anchorSize/2, Width: anchorSize, Height: anchorSize,
			Fill: "#ffffff", Stroke: "#1677ff", StrokeWidth: 1,
		}})
	}
	s.stage.SetChrome(chrome)
}

func anchorPoint(r transform.Rect, a Anchor) r2.Point {
	cx, cy := r.X+r.Width/2, r.Y+r.Height/2
	switch a {
	case AnchorTopLeft:
		return r2.Point{X: r.X, Y: r.Y}
	case AnchorTop:
		return r2.Point{X: cx, Y: r.Y}
	case AnchorTopRight:
		return r2.Point{X: r.Right(), Y: r.Y}
	case AnchorRight:
		return r2.Point{X: r.Right(), Y: cy}
	case AnchorBottomRight:
		return r2.Point{X: r.Right(), Y: r.Bottom()}
	case AnchorBottom:
		return r2.Point{X: cx, Y: r.Bottom()}
	case AnchorBottomLeft:
		return r2.Point{X: r.X, Y: r.Bottom()}
	case AnchorLeft:
		return r2.Point{X: r.X, Y: cy}
	}
	return r2.Point{X: cx, Y: cy}
}

// AnchorAt returns the resize anchor of r under p, AnchorBody when p is
// inside r, and AnchorNone otherwise.
func AnchorAt(r transform.Rect, p r2.Point, tolerance float64) Anchor {
	for a := AnchorTopLeft; a <= AnchorLeft; a++ {
		q := anchorPoint(r, a)
		if math.Abs(q.X-p.X) <= tolerance && math.Abs(q.Y-p.Y) <= tolerance {
			return a
		}
	}
	if r.Contains(p) {
		return AnchorBody
	}
	return AnchorNone
}

// ResizeRect moves the edges of r that anchor controls by delta. The result
// never shrinks below the minimum shape size.
func ResizeRect(r transform.Rect, anchor Anchor, delta r2.Point) transform.Rect {
	left, top, right, bottom := r.X, r.Y, r.Right(), r.Bottom()
	switch anchor {
	case AnchorBody:
		return transform.Rect{X: r.X + delta.X, Y: r.Y + delta.Y, Width: r.Width, Height: r.Height}
	case AnchorTopLeft:
		left, top = left+delta.X, top+delta.Y
	case AnchorTop:
		top += delta.Y
	case AnchorTopRight:
		right, top = right+delta.X, top+delta.Y
	case AnchorRight:
		right += delta.X
	case AnchorBottomRight:
		right, bottom = right+delta.X, bottom+delta.Y
	case AnchorBottom:
		bottom += delta.Y
	case AnchorBottomLeft:
		left, bottom = left+delta.X, bottom+delta.Y
	case AnchorLeft:
		left += delta.X
	}
	out := transform.Rect{X: left, Y: top, Width: right - left, Height: bottom - top}.Normalize()
	if out.Width < minSize {
		out.Width = minSize
	}
	if out.Height < minSize {
		out.Height = minSize
	}
	return out
}
