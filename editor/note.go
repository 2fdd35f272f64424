package editor

import (
	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/scene"
)

// NoteSize is the edge of the note icon.
const NoteSize = 24.0

// note drops a sticky note icon where the pointer goes down.
type note struct {
	base
}

func NewNote(opts Options) Editor {
	return &note{base: newBase(annotation.Note, opts)}
}

func (e *note) Activate(stage *scene.Stage, def annotation.Definition, _ string) {
	e.attach(stage, def, e)
}

func (e *note) HandleEvent(stage *scene.Stage, ev scene.Event) {
	if ev.Type != scene.PointerDown {
		return
	}
	g := e.begin()
	g.Attrs.X, g.Attrs.Y = ev.Point.X-NoteSize/2, ev.Point.Y-NoteSize/2
	NoteIcon(g, e.color())
	e.commit(g, "")
}

// NoteIcon adds the sticky note drawing to g at its origin.
func NoteIcon(g *scene.Node, color string) {
	fold := NoteSize / 4
	g.Add(
		&scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{
			Width: NoteSize, Height: NoteSize, Fill: color, Stroke: "#000000", StrokeWidth: 1,
		}},
		&scene.Node{Kind: scene.KindPath, Attrs: scene.Attrs{
			Points: []float64{NoteSize - fold, NoteSize, NoteSize - fold, NoteSize - fold, NoteSize, NoteSize - fold},
			Stroke: "#000000", StrokeWidth: 1,
		}},
	)
}
