package editor

import (
	"github.com/golang/geo/r2"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/scene"
)

// Largest placement size of signatures and stamps, and the size used when the
// payload dimensions cannot be read.
const (
	MaxImageWidth     = 200.0
	MaxImageHeight    = 120.0
	defaultImageSize  = 100.0
	placeholderHeight = 50.0
)

// placement places the payload picture centered on the pointer. Moving the
// pointer drags a preview along.
type placement struct {
	base
	payload string
	preview *scene.Node
}

func NewSignature(opts Options) Editor {
	return &placement{base: newBase(annotation.Signature, opts)}
}

func NewStamp(opts Options) Editor {
	return &placement{base: newBase(annotation.Stamp, opts)}
}

func (e *placement) defaultPayload() string {
	if e.kind == annotation.Signature {
		return e.opts.DefaultSignature
	}
	return e.opts.DefaultStamp
}

func (e *placement) Activate(stage *scene.Stage, def annotation.Definition, payload string) {
	e.preview = nil
	if payload == "" {
		payload = e.defaultPayload()
	}
	e.payload = payload
	e.attach(stage, def, e)
}

func (e *placement) HandleEvent(stage *scene.Stage, ev scene.Event) {
	if e.payload == "" {
		if ev.Type == scene.PointerDown {
			e.log.Debug("no image to place")
		}
		return
	}
	switch ev.Type {
	case scene.PointerMove:
		if e.preview == nil || e.session == nil {
			e.preview = e.begin()
			e.preview.Add(e.imageNode())
		}
		e.center(e.preview, ev.Point)
	case scene.PointerDown:
		g := e.session
		if g == nil {
			g = e.begin()
			g.Add(e.imageNode())
		}
		e.preview = nil
		e.center(g, ev.Point)
		e.commit(g, "")
	case scene.KeyUp:
		if ev.Key == scene.KeyEscape {
			e.preview = nil
			e.discard()
		}
	}
}

func (e *placement) imageNode() *scene.Node {
	w, h := ImagePlacement(e.payload)
	return &scene.Node{Kind: scene.KindImage, Attrs: scene.Attrs{Width: w, Height: h, Image: e.payload}}
}

func (e *placement) center(g *scene.Node, at r2.Point) {
	var w, h float64
	if len(g.Children) > 0 {
		w, h = g.Children[0].Attrs.Width, g.Children[0].Attrs.Height
	}
	g.Attrs.X, g.Attrs.Y = at.X-w/2, at.Y-h/2
}

// ImagePlacement returns the display size of an image payload, scaled down
// to fit within MaxImageWidth x MaxImageHeight.
func ImagePlacement(payload string) (float64, float64) {
	pw, ph, err := scene.DataURLSize(payload)
	if err != nil || pw == 0 || ph == 0 {
		return defaultImageSize, placeholderHeight
	}
	w, h := float64(pw), float64(ph)
	scale := 1.0
	if w > MaxImageWidth {
		scale = MaxImageWidth / w
	}
	if h*scale > MaxImageHeight {
		scale = MaxImageHeight / h
	}
	return w * scale, h * scale
}
