package editor

import (
	"strings"
	"unicode/utf8"

	"github.com/golang/geo/r2"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/scene"
)

const (
	FreeTextFontSize   = 16.0
	FreeTextFontFamily = "Helvetica"
	freeTextMinWidth   = 40.0
)

// freeText opens a text box at the pointer. The box is committed on Enter or
// when the pointer goes down outside of it, and discarded on Escape.
type freeText struct {
	base
	text *scene.Node
}

func NewFreeText(opts Options) Editor {
	return &freeText{base: newBase(annotation.FreeText, opts)}
}

func (e *freeText) Activate(stage *scene.Stage, def annotation.Definition, _ string) {
	e.text = nil
	e.attach(stage, def, e)
}

func (e *freeText) HandleEvent(stage *scene.Stage, ev scene.Event) {
	switch ev.Type {
	case scene.PointerDown:
		if e.text != nil {
			if e.session.ClientRect().Contains(ev.Point) {
				return
			}
			e.finish()
			return
		}
		e.open(ev.Point)
	case scene.TextInput:
		if e.text == nil {
			return
		}
		e.text.Attrs.Text = ev.Text
		e.layout()
	case scene.KeyUp:
		switch ev.Key {
		case scene.KeyEnter:
			e.finish()
		case scene.KeyEscape:
			e.text = nil
			e.discard()
		}
	}
}

func (e *freeText) open(at r2.Point) {
	g := e.begin()
	g.Attrs.X, g.Attrs.Y = at.X, at.Y
	e.text = &scene.Node{Kind: scene.KindText, Attrs: scene.Attrs{
		Fill:       e.color(),
		FontSize:   FreeTextFontSize,
		FontFamily: FreeTextFontFamily,
	}}
	g.Add(e.text)
	e.layout()
}

func (e *freeText) layout() {
	w, h := TextExtent(e.text.Attrs.Text, e.text.Attrs.FontSize)
	e.text.Attrs.Width = w
	e.text.Attrs.Height = h
}

func (e *freeText) finish() {
	t := e.text
	e.text = nil
	if t == nil || e.session == nil {
		return
	}
	content := strings.TrimSpace(t.Attrs.Text)
	if content == "" {
		e.discard()
		return
	}
	e.commit(e.session, content)
}

// TextExtent estimates the box a text occupies at fontSize.
func TextExtent(text string, fontSize float64) (float64, float64) {
	lines := strings.Split(text, "\n")
	longest := 0
	for _, l := range lines {
		if n := utf8.RuneCountInString(l); n > longest {
			longest = n
		}
	}
	w := float64(longest) * fontSize * 0.6
	if w < freeTextMinWidth {
		w = freeTextMinWidth
	}
	return w, float64(len(lines)) * fontSize * 1.2
}
