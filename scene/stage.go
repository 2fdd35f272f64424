package scene

import (
	"github.com/golang/geo/r2"

	"github.com/mgmeyers/pdfannotator/transform"
)

type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	KeyUp
	TextInput
)

func (t EventType) String() string {
	switch t {
	case PointerDown:
		return "pointerdown"
	case PointerMove:
		return "pointermove"
	case PointerUp:
		return "pointerup"
	case KeyUp:
		return "keyup"
	case TextInput:
		return "textinput"
	}
	return "unknown"
}

// Event is an input gesture in display space.
type Event struct {
	Type  EventType
	Point r2.Point
	Key   string
	Text  string
}

const (
	KeyEscape = "Escape"
	KeyEnter  = "Enter"
	KeyDelete = "Delete"
)

// Handler receives the events routed to a stage.
type Handler interface {
	HandleEvent(stage *Stage, ev Event)
}

type HandlerFunc func(stage *Stage, ev Event)

func (f HandlerFunc) HandleEvent(stage *Stage, ev Event) { f(stage, ev) }

// Container is the viewer element a stage is mounted in.
type Container interface {
	Attached() bool
}

// ChromeName marks nodes that belong to selection chrome rather than to
// annotations.
const ChromeName = "chrome"

// Stage is the drawing surface of one page.
type Stage struct {
	page      int
	viewport  transform.Viewport
	container Container
	layer     *Node
	chrome    *Node
	handler   Handler
	destroyed bool
}

func NewStage(page int, vp transform.Viewport, container Container) *Stage {
	return &Stage{
		page:      page,
		viewport:  vp,
		container: container,
		layer:     NewGroup("", "layer"),
	}
}

func (s *Stage) Page() int                    { return s.page }
func (s *Stage) Viewport() transform.Viewport { return s.viewport }
func (s *Stage) Destroyed() bool              { return s.destroyed }

// Attached reports whether the stage is still mounted in the live document.
func (s *Stage) Attached() bool {
	if s.destroyed {
		return false
	}
	return s.container == nil || s.container.Attached()
}

// Resize updates the viewport. Shape nodes live in display space and keep
// their geometry.
func (s *Stage) Resize(vp transform.Viewport) {
	s.viewport = vp
}

func (s *Stage) Destroy() {
	s.destroyed = true
	s.handler = nil
	s.layer.Children = nil
	s.chrome = nil
}

func (s *Stage) SetHandler(h Handler) {
	if s.destroyed {
		return
	}
	s.handler = h
}

func (s *Stage) Handler() Handler { return s.handler }

// Dispatch routes ev to the active handler.
func (s *Stage) Dispatch(ev Event) {
	if s.destroyed || s.handler == nil {
		return
	}
	s.handler.HandleEvent(s, ev)
}

func (s *Stage) AddGroup(g *Node) {
	if s.destroyed || g == nil {
		return
	}
	s.layer.Add(g)
}

func (s *Stage) FindGroup(id string) *Node {
	if id == "" {
		return nil
	}
	for _, g := range s.layer.Children {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func (s *Stage) RemoveGroup(id string) bool {
	g := s.FindGroup(id)
	if g == nil {
		return false
	}
	g.Remove()
	return true
}

// Groups returns the committed shape groups in paint order.
func (s *Stage) Groups() []*Node {
	out := make([]*Node, 0, len(s.layer.Children))
	for _, g := range s.layer.Children {
		if g.ID != "" {
			out = append(out, g)
		}
	}
	return out
}

// Layer is the root node every group is attached to.
func (s *Stage) Layer() *Node { return s.layer }

// HitTest returns the topmost committed group whose bounds contain p,
// grown by tolerance on every side.
func (s *Stage) HitTest(p r2.Point, tolerance float64) *Node {
	groups := s.Groups()
	for i := len(groups) - 1; i >= 0; i-- {
		r := groups[i].ClientRect()
		r = transform.Rect{
			X:      r.X - tolerance,
			Y:      r.Y - tolerance,
			Width:  r.Width + 2*tolerance,
			Height: r.Height + 2*tolerance,
		}
		if r.Contains(p) {
			return groups[i]
		}
	}
	return nil
}

func (s *Stage) Chrome() *Node { return s.chrome }

func (s *Stage) SetChrome(n *Node) {
	if s.destroyed {
		return
	}
	if n != nil {
		n.Name = ChromeName
	}
	s.chrome = n
}

func (s *Stage) ClearChrome() { s.chrome = nil }
