// Package scene implements the retained-mode drawing surface that hosts live
// shape nodes, and the versioned serialization of shape groups.
package scene

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/mgmeyers/pdfannotator/transform"
)

// Kind tags a node in the shape tree.
type Kind string

const (
	KindGroup   Kind = "Group"
	KindRect    Kind = "Rect"
	KindEllipse Kind = "Ellipse"
	KindLine    Kind = "Line"
	KindArrow   Kind = "Arrow"
	KindPath    Kind = "Path"
	KindText    Kind = "Text"
	KindImage   Kind = "Image"
)

// Attrs holds the attributes of a node. Only the fields meaningful for the
// node's kind are set.
type Attrs struct {
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	ScaleX float64 `json:"scaleX,omitempty"`
	ScaleY float64 `json:"scaleY,omitempty"`

	Width   float64 `json:"width,omitempty"`
	Height  float64 `json:"height,omitempty"`
	RadiusX float64 `json:"radiusX,omitempty"`
	RadiusY float64 `json:"radiusY,omitempty"`

	Points []float64 `json:"points,omitempty"`
	Closed bool      `json:"closed,omitempty"`

	PointerLength float64 `json:"pointerLength,omitempty"`
	PointerWidth  float64 `json:"pointerWidth,omitempty"`

	Stroke      string   `json:"stroke,omitempty"`
	Fill        string   `json:"fill,omitempty"`
	StrokeWidth float64  `json:"strokeWidth,omitempty"`
	Opacity     *float64 `json:"opacity,omitempty"`

	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`

	// Image is a data URL.
	Image string `json:"image,omitempty"`

	Visible *bool `json:"visible,omitempty"`
}

// Node is one element of a shape tree. Group nodes carry the group transform
// in X/Y/ScaleX/ScaleY; leaf nodes use local coordinates.
type Node struct {
	Kind     Kind    `json:"kind"`
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name,omitempty"`
	Attrs    Attrs   `json:"attrs"`
	Children []*Node `json:"children,omitempty"`

	parent *Node
}

func NewGroup(id, name string) *Node {
	return &Node{Kind: KindGroup, ID: id, Name: name, Attrs: Attrs{ScaleX: 1, ScaleY: 1}}
}

func Float(v float64) *float64 { return &v }

func (n *Node) Parent() *Node { return n.parent }

func (n *Node) Add(children ...*Node) {
	for _, c := range children {
		if c.parent != nil {
			c.parent.removeChild(c)
		}
		c.parent = n
		n.Children = append(n.Children, c)
	}
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.parent != nil {
		n.parent.removeChild(n)
	}
}

func (n *Node) removeChild(c *Node) {
	for i, child := range n.Children {
		if child == c {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			break
		}
	}
	c.parent = nil
}

// Find returns the first descendant (or n itself) with the given id.
func (n *Node) Find(id string) *Node {
	if n.ID == id {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits n and its descendants depth first until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Shapes returns the leaf nodes of the given kinds, in document order.
func (n *Node) Shapes(kinds ...Kind) []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.Kind == KindGroup {
			return true
		}
		if len(kinds) == 0 {
			out = append(out, c)
			return true
		}
		for _, k := range kinds {
			if c.Kind == k {
				out = append(out, c)
				break
			}
		}
		return true
	})
	return out
}

// Transform returns the node's own translate + scale.
func (n *Node) Transform() transform.Group {
	if n.Kind != KindGroup {
		return transform.Identity
	}
	return transform.Group{
		X:      n.Attrs.X,
		Y:      n.Attrs.Y,
		ScaleX: n.Attrs.ScaleX,
		ScaleY: n.Attrs.ScaleY,
	}.Normalized()
}

func (n *Node) SetTransform(g transform.Group) {
	g = g.Normalized()
	n.Attrs.X, n.Attrs.Y = g.X, g.Y
	n.Attrs.ScaleX, n.Attrs.ScaleY = g.ScaleX, g.ScaleY
}

// AbsoluteTransform composes the transforms of every group from the root
// down to n.
func (n *Node) AbsoluteTransform() transform.Group {
	t := n.Transform()
	for p := n.parent; p != nil; p = p.parent {
		t = p.Transform().Compose(t)
	}
	return t
}

// LocalBounds returns the bounds of a leaf in its parent's coordinates,
// including half the stroke width.
func (n *Node) LocalBounds() transform.Rect {
	a := n.Attrs
	var r transform.Rect
	switch n.Kind {
	case KindRect, KindText, KindImage:
		r = transform.Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}.Normalize()
	case KindEllipse:
		r = transform.Rect{X: a.X - a.RadiusX, Y: a.Y - a.RadiusY, Width: 2 * a.RadiusX, Height: 2 * a.RadiusY}
	case KindLine, KindPath, KindArrow:
		pts := make([]r2.Point, 0, len(a.Points)/2)
		for i := 0; i+1 < len(a.Points); i += 2 {
			pts = append(pts, r2.Point{X: a.X + a.Points[i], Y: a.Y + a.Points[i+1]})
		}
		r = transform.BoundsOfPoints(pts)
		if n.Kind == KindArrow {
			pad := math.Max(a.PointerLength, a.PointerWidth) / 2
			r = transform.Rect{X: r.X - pad, Y: r.Y - pad, Width: r.Width + 2*pad, Height: r.Height + 2*pad}
		}
	default:
		return transform.Rect{}
	}
	if a.StrokeWidth > 0 && n.Kind != KindText && n.Kind != KindImage {
		half := a.StrokeWidth / 2
		r = transform.Rect{X: r.X - half, Y: r.Y - half, Width: r.Width + a.StrokeWidth, Height: r.Height + a.StrokeWidth}
	}
	return r
}

// ClientRect returns the bounds of n in display space.
func (n *Node) ClientRect() transform.Rect {
	if n.Kind != KindGroup {
		parent := transform.Identity
		if n.parent != nil {
			parent = n.parent.AbsoluteTransform()
		}
		return parent.ApplyRect(n.LocalBounds())
	}
	var out transform.Rect
	for _, c := range n.Children {
		out = transform.Union(out, c.ClientRect())
	}
	return out
}

// Clone returns a deep copy of n without a parent.
func (n *Node) Clone() *Node {
	c := &Node{Kind: n.Kind, ID: n.ID, Name: n.Name, Attrs: n.Attrs}
	if n.Attrs.Points != nil {
		c.Attrs.Points = append([]float64(nil), n.Attrs.Points...)
	}
	if n.Attrs.Opacity != nil {
		c.Attrs.Opacity = Float(*n.Attrs.Opacity)
	}
	if n.Attrs.Visible != nil {
		v := *n.Attrs.Visible
		c.Attrs.Visible = &v
	}
	for _, child := range n.Children {
		c.Add(child.Clone())
	}
	return c
}

func (n *Node) link() {
	for _, c := range n.Children {
		c.parent = n
		c.link()
	}
}
