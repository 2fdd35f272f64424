package codec_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mgmeyers/unipdf/v3/core"
	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/codec"
	"github.com/mgmeyers/pdfannotator/pdfutils"
	"github.com/mgmeyers/pdfannotator/scene"
	"github.com/mgmeyers/pdfannotator/transform"
)

// objectNumber returns the object number an annotation entry points at.
func objectNumber(obj core.PdfObject) int64 {
	switch o := obj.(type) {
	case *core.PdfObjectReference:
		return o.ObjectNumber
	case *core.PdfIndirectObject:
		return o.ObjectNumber
	}
	return -1
}

func exportedPage(t *testing.T, records []*annotation.Record, page int) []*model.PdfAnnotation {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, codec.NewEncoder(nullLogger()).Encode(context.Background(), blankPDF(t, 2), records, &out))

	reader, err := model.NewPdfReader(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	p, err := reader.GetPage(page)
	require.NoError(t, err)
	annots, err := p.GetAnnotations()
	require.NoError(t, err)
	return annots
}

func TestEncodeWritesRepliesAsText(t *testing.T) {
	records := fixtures(t)
	rect := records[0]
	rect.Title = "Ana Müller"
	rect.Comments[0].Content = "grüße ✓"

	annots := exportedPage(t, records, 1)

	parents := map[string]*model.PdfAnnotation{}
	var replies []*model.PdfAnnotationText
	for _, a := range annots {
		if text, ok := a.GetContext().(*model.PdfAnnotationText); ok && text.IRT != nil {
			replies = append(replies, text)
			continue
		}
		parents[pdfutils.GetText(a.NM)] = a
	}

	require.Contains(t, parents, "rect-1")
	require.Contains(t, parents, "hl-1")
	assert.NotContains(t, parents, "bad-1")
	parent := parents["rect-1"]

	square, ok := parent.GetContext().(*model.PdfAnnotationSquare)
	require.True(t, ok)
	title, ok := core.GetString(square.T)
	require.True(t, ok)
	assert.Equal(t, []byte{0xfe, 0xff}, title.Bytes()[:2])
	assert.Equal(t, "Ana Müller", pdfutils.DecodeText(title))

	require.Len(t, replies, len(rect.Comments))
	seen := map[string]bool{}
	for i, r := range replies {
		nm := pdfutils.GetText(r.NM)
		assert.Equal(t, rect.Comments[i].ID, nm)
		assert.False(t, seen[nm], "duplicate NM %s", nm)
		seen[nm] = true

		assert.Equal(t, "R", pdfutils.GetName(r.RT))
		assert.Equal(t, objectNumber(parent.GetContainingPdfObject()), objectNumber(r.IRT))
		assert.Equal(t, rect.Comments[i].Content, pdfutils.GetText(r.Contents))
	}
	assert.Equal(t, "Accepted", pdfutils.GetText(replies[1].State))
	assert.Nil(t, replies[0].State)
}

func TestEncodeArrowHeadFollowsLastSegment(t *testing.T) {
	rec := record("arrow-2", 1, annotation.Arrow, transform.Rect{X: 45, Y: 45, Width: 110, Height: 110},
		group("arrow-2", 50, 50, &scene.Node{Kind: scene.KindArrow, Attrs: scene.Attrs{
			Points: []float64{0, 0, 100, 0, 100, 100}, PointerLength: 10, PointerWidth: 10,
		}}))

	annots := exportedPage(t, []*annotation.Record{rec}, 1)
	require.Len(t, annots, 1)
	ink, ok := annots[0].GetContext().(*model.PdfAnnotationInk)
	require.True(t, ok)

	list, ok := core.GetArray(ink.InkList)
	require.True(t, ok)
	require.Equal(t, 1, list.Len())
	path, ok := pdfutils.GetFloats(list.Get(0))
	require.True(t, ok)

	// shaft (50,50) (150,50) (150,150), then the head pointing down the
	// last segment; native y is 800 minus display y
	want := []float64{
		50, 750, 150, 750, 150, 650,
		145, 660, 155, 660,
		150, 650,
	}
	if diff := cmp.Diff(want, path, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("ink path mismatch (-want +got):\n%s", diff)
	}
}
