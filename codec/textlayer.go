package codec

import (
	"sync"

	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/pdfannotator/pdfutils"
	"github.com/mgmeyers/pdfannotator/transform"
)

// TextLayer serves the word rectangles of a document's pages in display
// space. Pages are extracted on first use and cached.
type TextLayer struct {
	mu     sync.Mutex
	reader *model.PdfReader
	log    logrus.FieldLogger
	spans  map[int][]transform.Rect
}

func NewTextLayer(reader *model.PdfReader, log logrus.FieldLogger) *TextLayer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TextLayer{reader: reader, log: log, spans: map[int][]transform.Rect{}}
}

// Spans returns the word rects of the 1-based page, or nil when the page has
// no extractable text.
func (t *TextLayer) Spans(page int) []transform.Rect {
	t.mu.Lock()
	defer t.mu.Unlock()

	if spans, ok := t.spans[page]; ok {
		return spans
	}

	log := t.log.WithField("page", page)
	p, err := t.reader.GetPage(page)
	if err != nil {
		log.WithError(err).Debug("no such page")
		return nil
	}

	native, err := pdfutils.TextSpans(p)
	if err != nil {
		log.WithError(err).Debug("no text layer")
	}

	f := pageFrame(p)
	spans := make([]transform.Rect, 0, len(native))
	for _, r := range native {
		spans = append(spans, f.toDisplay(r))
	}
	t.spans[page] = spans
	return spans
}
