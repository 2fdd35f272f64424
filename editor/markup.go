package editor

import (
	"math"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/scene"
	"github.com/mgmeyers/pdfannotator/transform"
)

// TextMarkup is implemented by the editors that annotate a text selection
// rather than a pointer gesture.
type TextMarkup interface {
	Editor
	// ConvertSelection commits one record covering the selected spans, given
	// in display space.
	ConvertSelection(spans []transform.Rect, text string) *annotation.Record
}

type markup struct {
	base
}

// NewTextMarkup returns the editor of the highlight, underline or strikeout
// kind.
func NewTextMarkup(kind annotation.Type, opts Options) TextMarkup {
	return &markup{base: newBase(kind, opts)}
}

// Activate binds the editor without a gesture handler; selections arrive
// through ConvertSelection.
func (e *markup) Activate(stage *scene.Stage, def annotation.Definition, _ string) {
	e.attach(stage, def, nil)
}

func (e *markup) ConvertSelection(spans []transform.Rect, text string) *annotation.Record {
	if e.stage == nil || e.stage.Destroyed() || len(spans) == 0 {
		return nil
	}
	g := e.begin()
	for _, s := range spans {
		r := MarkupRect(e.kind, s)
		if r.Width <= 0 || r.Height <= 0 {
			continue
		}
		g.Add(&scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{
			X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
			Fill: e.color(), Opacity: e.opacity(),
		}})
	}
	if len(g.Children) == 0 {
		e.discard()
		return nil
	}
	return e.commit(g, text)
}

// MarkupRect returns the rectangle painted over span for the given markup
// kind: the whole span for highlights, a thin bar along the bottom for
// underlines and through the middle for strikeouts.
func MarkupRect(kind annotation.Type, span transform.Rect) transform.Rect {
	span = span.Normalize()
	bar := math.Max(1, span.Height/12)
	switch kind {
	case annotation.Underline:
		return transform.Rect{X: span.X, Y: span.Bottom() - bar, Width: span.Width, Height: bar}
	case annotation.Strikeout:
		return transform.Rect{X: span.X, Y: span.Y + (span.Height-bar)/2, Width: span.Width, Height: bar}
	}
	return span
}
