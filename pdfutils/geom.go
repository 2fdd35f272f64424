package pdfutils

import (
	"math"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/mgmeyers/unipdf/v3/extractor"
	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/pkg/errors"
)

func GetMarkRect(mark extractor.TextMark) r2.Rect {
	return r2.RectFromPoints(
		r2.Point{
			X: mark.BBox.Llx,
			Y: mark.BBox.Lly,
		},
		r2.Point{
			X: mark.BBox.Llx,
			Y: mark.BBox.Ury,
		},
		r2.Point{
			X: mark.BBox.Urx,
			Y: mark.BBox.Lly,
		},
		r2.Point{
			X: mark.BBox.Urx,
			Y: mark.BBox.Ury,
		},
	)
}

// Mark is one extracted glyph run in native space.
type Mark struct {
	Text string
	Rect r2.Rect
}

// TextSpans returns the word rectangles of page in native space.
func TextSpans(page *model.PdfPage) ([]r2.Rect, error) {
	ext, err := extractor.New(page)
	if err != nil {
		return nil, errors.Wrap(err, "create text extractor")
	}

	txt, _, _, err := ext.ExtractPageText()
	if err != nil {
		return nil, errors.Wrap(err, "extract page text")
	}

	elements := txt.Marks().Elements()
	marks := make([]Mark, 0, len(elements))
	for _, mark := range elements {
		marks = append(marks, Mark{Text: mark.Text, Rect: GetMarkRect(mark)})
	}

	return MergeMarks(marks), nil
}

// MergeMarks joins consecutive marks into words. A word ends at whitespace,
// at an empty mark and where the next mark does not share the line.
func MergeMarks(marks []Mark) []r2.Rect {
	spans := []r2.Rect{}
	bound := r2.EmptyRect()
	boundSet := false

	flush := func() {
		if boundSet {
			spans = append(spans, bound)
		}
		bound = r2.EmptyRect()
		boundSet = false
	}

	for _, mark := range marks {
		if strings.TrimSpace(mark.Text) == "" || !mark.Rect.IsValid() || mark.Rect.IsEmpty() {
			flush()
			continue
		}

		if boundSet && !sameLine(bound, mark.Rect) {
			flush()
		}

		if !boundSet {
			bound = mark.Rect
			boundSet = true
			continue
		}

		bound.X.Lo = math.Min(bound.X.Lo, mark.Rect.X.Lo)
		bound.Y.Lo = math.Min(bound.Y.Lo, mark.Rect.Y.Lo)
		bound.X.Hi = math.Max(bound.X.Hi, mark.Rect.X.Hi)
		bound.Y.Hi = math.Max(bound.Y.Hi, mark.Rect.Y.Hi)
	}
	flush()

	return spans
}

// sameLine reports whether b overlaps the vertical middle of a.
func sameLine(a, b r2.Rect) bool {
	mid := (a.Y.Lo + a.Y.Hi) / 2
	return b.Y.Lo <= mid && mid <= b.Y.Hi
}
