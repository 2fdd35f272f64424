package editor

import (
	"github.com/pkg/errors"

	"github.com/mgmeyers/pdfannotator/annotation"
)

var ErrNoEditor = errors.New("annotation kind has no editor")

// New returns the editor of kind, bound to the page in opts.
func New(kind annotation.Type, opts Options) (Editor, error) {
	switch kind {
	case annotation.Rectangle:
		return NewRectangle(opts), nil
	case annotation.Circle:
		return NewCircle(opts), nil
	case annotation.Cloud:
		return NewCloud(opts), nil
	case annotation.FreeHand:
		return NewFreeHand(opts), nil
	case annotation.FreeHighlight:
		return NewFreeHighlight(opts), nil
	case annotation.Arrow:
		return NewArrow(opts), nil
	case annotation.Highlight, annotation.Underline, annotation.Strikeout:
		return NewTextMarkup(kind, opts), nil
	case annotation.FreeText:
		return NewFreeText(opts), nil
	case annotation.Note:
		return NewNote(opts), nil
	case annotation.Signature:
		return NewSignature(opts), nil
	case annotation.Stamp:
		return NewStamp(opts), nil
	}
	return nil, errors.Wrap(ErrNoEditor, kind.String())
}
