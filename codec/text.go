package codec

import (
	"github.com/golang/geo/r2"
	"github.com/mgmeyers/unipdf/v3/extractor"
	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/pkg/errors"

	"github.com/mgmeyers/pdfannotator/pdfutils"
	"github.com/mgmeyers/pdfannotator/transform"
)

// pageText is the extracted text of one page with the native rect of every
// mark.
type pageText struct {
	text  string
	marks []extractor.TextMark
	rects []r2.Rect
}

func extractPageText(page *model.PdfPage) (*pageText, error) {
	ext, err := extractor.New(page)
	if err != nil {
		return nil, errors.Wrap(err, "create text extractor")
	}

	txt, _, _, err := ext.ExtractPageText()
	if err != nil {
		return nil, errors.Wrap(err, "extract page text")
	}

	marks := txt.Marks().Elements()
	rects := make([]r2.Rect, 0, len(marks))
	for _, mark := range marks {
		rects = append(rects, pdfutils.GetMarkRect(mark))
	}

	return &pageText{text: txt.Text(), marks: marks, rects: rects}, nil
}

// annotated returns the text under the native rects of a markup annotation.
func (t *pageText) annotated(annoRects []r2.Rect) string {
	str := ""

	for _, anno := range annoRects {
		if !anno.IsValid() || anno.IsEmpty() {
			continue
		}

		for i, mark := range t.rects {
			if !mark.IsValid() || mark.IsEmpty() {
				continue
			}

			if !anno.Intersects(mark) || !transform.IsWithinOverlapThresh(anno, mark) {
				continue
			}

			m := t.marks[i]
			if len(m.Text) > 0 && m.Offset > 0 && m.Offset <= len(t.text) && len(str) > 0 {
				prevChar := t.text[m.Offset-1]

				if prevChar == ' ' || prevChar == '\n' {
					str += " " + m.Text
					continue
				}
			}

			str += m.Text
		}
	}

	return pdfutils.CondenseSpaces(str)
}
