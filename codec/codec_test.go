package codec_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/codec"
	"github.com/mgmeyers/pdfannotator/scene"
	"github.com/mgmeyers/pdfannotator/transform"
)

func nullLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func blankPDF(t *testing.T, pages int) *bytes.Reader {
	t.Helper()
	w := model.NewPdfWriter()
	for i := 0; i < pages; i++ {
		p := model.NewPdfPage()
		p.MediaBox = &model.PdfRectangle{Urx: 600, Ury: 800}
		p.Resources = model.NewPdfPageResources()
		require.NoError(t, w.AddPage(p))
	}
	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func group(id string, x, y float64, children ...*scene.Node) string {
	g := scene.NewGroup(id, id)
	g.Attrs.X, g.Attrs.Y = x, y
	g.Add(children...)
	return scene.MustMarshal(g)
}

func record(id string, page int, kind annotation.Type, rect transform.Rect, g string) *annotation.Record {
	def, _ := annotation.DefinitionFor(kind)
	return &annotation.Record{
		ID:          id,
		PageNumber:  page,
		Type:        kind,
		Subtype:     def.Subtype,
		Group:       g,
		Rect:        rect,
		Title:       "ana",
		Date:        "D:20240506070809Z'00'",
		Color:       "#ff0000",
		Opacity:     annotation.Float(1),
		StrokeWidth: annotation.Float(2),
	}
}

func fixtures(t *testing.T) []*annotation.Record {
	rect := record("rect-1", 1, annotation.Rectangle, transform.Rect{X: 100, Y: 100, Width: 100, Height: 50},
		group("rect-1", 100, 100, &scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{
			X: 1, Y: 1, Width: 98, Height: 48, Stroke: "#ff0000", StrokeWidth: 2,
		}}))
	rect.Contents = "look here"
	rect.Comments = []annotation.Comment{
		{ID: "c-1", Title: "bo", Date: "D:20240506080000Z'00'", Content: "agreed"},
		{ID: "c-2", Title: "cy", Date: "D:20240506090000Z'00'", Content: "done", Status: annotation.StatusAccepted},
	}

	hl := record("hl-1", 1, annotation.Highlight, transform.Rect{X: 50, Y: 300, Width: 80, Height: 12},
		group("hl-1", 50, 300, &scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{
			Width: 80, Height: 12, Fill: "#ffff00",
		}}))
	hl.Contents = "hello"
	hl.Color = "#ffff00"
	hl.StrokeWidth = nil

	arrow := record("arrow-1", 2, annotation.Arrow, transform.Rect{X: 45, Y: 45, Width: 110, Height: 10},
		group("arrow-1", 50, 50, &scene.Node{Kind: scene.KindArrow, Attrs: scene.Attrs{
			Points: []float64{0, 0, 100, 0}, PointerLength: 10, PointerWidth: 10, Stroke: "#ff0000", StrokeWidth: 2,
		}}))

	url, err := scene.EncodeDataURL(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	stamp := record("stamp-1", 2, annotation.Stamp, transform.Rect{X: 300, Y: 300, Width: 40, Height: 40},
		group("stamp-1", 300, 300, &scene.Node{Kind: scene.KindImage, Attrs: scene.Attrs{
			Width: 40, Height: 40, Image: url,
		}}))
	stamp.Color, stamp.Opacity, stamp.StrokeWidth = "", nil, nil

	corrupt := record("bad-1", 1, annotation.Rectangle, transform.Rect{X: 10, Y: 10, Width: 10, Height: 10}, "{not json")

	return []*annotation.Record{rect, hl, arrow, stamp, corrupt}
}

func roundTrip(t *testing.T, records []*annotation.Record) map[string]*annotation.Record {
	byID, _ := roundTripLogged(t, records)
	return byID
}

func roundTripLogged(t *testing.T, records []*annotation.Record) (map[string]*annotation.Record, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	var out bytes.Buffer
	err := codec.NewEncoder(log).Encode(context.Background(), blankPDF(t, 2), records, &out)
	require.NoError(t, err)

	decoded, err := codec.NewDecoder(nullLogger()).Decode(context.Background(), bytes.NewReader(out.Bytes()))
	require.NoError(t, err)

	byID := map[string]*annotation.Record{}
	for _, rec := range decoded {
		byID[rec.ID] = rec
	}
	return byID, hook
}

func TestRoundTrip(t *testing.T) {
	byID, hook := roundTripLogged(t, fixtures(t))

	require.Len(t, byID, 4)
	assert.NotContains(t, byID, "bad-1")
	var skipped []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			skipped = append(skipped, e.Data["id"].(string))
		}
	}
	assert.Equal(t, []string{"bad-1"}, skipped)

	rect := byID["rect-1"]
	require.NotNil(t, rect)
	assert.Equal(t, annotation.Rectangle, rect.Type)
	assert.Equal(t, 1, rect.PageNumber)
	assert.True(t, rect.Native)
	assert.Equal(t, "ana", rect.Title)
	assert.Equal(t, "look here", rect.Contents)
	assert.Equal(t, "#ff0000", rect.Color)
	require.NotNil(t, rect.StrokeWidth)
	assert.InDelta(t, 2, *rect.StrokeWidth, 1e-6)
	assert.True(t, rect.Rect.ApproxEqual(transform.Rect{X: 100, Y: 100, Width: 100, Height: 50}, 1), rect.Rect)

	g, err := scene.Unmarshal(rect.Group)
	require.NoError(t, err)
	assert.True(t, g.ClientRect().ApproxEqual(rect.Rect, 1), g.ClientRect())

	require.Len(t, rect.Comments, 2)
	assert.Equal(t, "c-1", rect.Comments[0].ID)
	assert.Equal(t, "agreed", rect.Comments[0].Content)
	assert.Equal(t, "c-2", rect.Comments[1].ID)
	assert.Equal(t, annotation.StatusAccepted, rect.Comments[1].Status)
	assert.Equal(t, annotation.StatusAccepted, rect.LastStatus())

	hl := byID["hl-1"]
	require.NotNil(t, hl)
	assert.Equal(t, annotation.Highlight, hl.Type)
	assert.Equal(t, "hello", hl.Contents)
	g, err = scene.Unmarshal(hl.Group)
	require.NoError(t, err)
	require.Len(t, g.Shapes(scene.KindRect), 1)
	assert.True(t, g.ClientRect().ApproxEqual(transform.Rect{X: 50, Y: 300, Width: 80, Height: 12}, 1), g.ClientRect())

	stamp := byID["stamp-1"]
	require.NotNil(t, stamp)
	assert.Equal(t, annotation.Stamp, stamp.Type)
	assert.Equal(t, 2, stamp.PageNumber)
}

func TestArrowEncodesAsInk(t *testing.T) {
	byID := roundTrip(t, fixtures(t))

	arrow := byID["arrow-1"]
	require.NotNil(t, arrow)
	assert.Equal(t, annotation.FreeHand, arrow.Type)
	assert.Equal(t, annotation.SubtypeInk, arrow.Subtype)

	g, err := scene.Unmarshal(arrow.Group)
	require.NoError(t, err)
	lines := g.Shapes(scene.KindLine)
	require.Len(t, lines, 1)
	assert.Len(t, lines[0].Attrs.Points, 10)
}

func TestDecodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := codec.NewDecoder(nullLogger()).Decode(ctx, blankPDF(t, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeSkipsRecordsOutsideDocument(t *testing.T) {
	recs := fixtures(t)[:1]
	recs[0].PageNumber = 9
	byID := roundTrip(t, recs)
	assert.Empty(t, byID)
}

func TestArrowInkPath(t *testing.T) {
	got := codec.ArrowInkPath(r2.Point{}, r2.Point{X: 10}, 4, 2)
	want := []r2.Point{{}, {X: 10}, {X: 6, Y: 1}, {X: 6, Y: -1}, {X: 10}}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("ArrowInkPath() mismatch (-want +got):\n%s", diff)
	}

	same := codec.ArrowInkPath(r2.Point{X: 3, Y: 3}, r2.Point{X: 3, Y: 3}, 4, 2)
	assert.Len(t, same, 5)
}

func TestWriteTable(t *testing.T) {
	recs := fixtures(t)[:2]
	var buf bytes.Buffer
	require.NoError(t, codec.WriteTable(&buf, recs))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+1+2+1)
	assert.Equal(t, codec.TableHeader, rows[0])

	assert.Equal(t, "rect-1", rows[1][0])
	assert.Equal(t, "RECTANGLE", rows[1][3])
	assert.Equal(t, "2024-05-06T07:08:09Z", rows[1][5])
	assert.Equal(t, "Red", rows[1][7])
	assert.Equal(t, "accepted", rows[1][8])

	assert.Equal(t, "c-1", rows[2][0])
	assert.Equal(t, "rect-1", rows[2][1])
	assert.Equal(t, "none", rows[2][8])
	assert.Equal(t, "accepted", rows[3][8])

	assert.Equal(t, "hl-1", rows[4][0])
	assert.Equal(t, "Yellow", rows[4][7])
}
