package painter_test

import (
	"context"
	stdimage "image"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/painter"
	"github.com/mgmeyers/pdfannotator/scene"
	"github.com/mgmeyers/pdfannotator/store"
	"github.com/mgmeyers/pdfannotator/transform"
)

type view struct {
	page     int
	scale    float64
	detached bool
}

func (v *view) PageNumber() int { return v.page }
func (v *view) Attached() bool  { return !v.detached }
func (v *view) Viewport() transform.Viewport {
	scale := v.scale
	if scale == 0 {
		scale = 1
	}
	return transform.Viewport{Width: 600 * scale, Height: 800 * scale, Scale: scale}
}

type recorder struct {
	added    []string
	deleted  []string
	selected []string
	clicks   []bool
	changed  []string
	viewArea int
}

func newPainter(t *testing.T) (*painter.Painter, *recorder) {
	t.Helper()
	log, _ := test.NewNullLogger()
	rec := &recorder{}
	p := painter.New(painter.Options{
		Store:  store.New(log),
		Author: "tester",
		Log:    log,
		Hooks: painter.Hooks{
			Added:   func(r *annotation.Record) { rec.added = append(rec.added, r.ID) },
			Deleted: func(id string) { rec.deleted = append(rec.deleted, id) },
			Selected: func(r *annotation.Record, isClick bool) {
				rec.clicks = append(rec.clicks, isClick)
				id := ""
				if r != nil {
					id = r.ID
				}
				rec.selected = append(rec.selected, id)
			},
			Changed:         func(r *annotation.Record) { rec.changed = append(rec.changed, r.ID) },
			ViewAreaChanged: func() { rec.viewArea++ },
		},
		Debounce: time.Hour,
	})
	t.Cleanup(p.Destroy)
	return p, rec
}

func def(t *testing.T, kind annotation.Type) annotation.Definition {
	t.Helper()
	d, ok := annotation.DefinitionFor(kind)
	require.True(t, ok)
	return d
}

func drag(p *painter.Painter, page int, from, to r2.Point) {
	p.Dispatch(page, scene.Event{Type: scene.PointerDown, Point: from})
	p.Dispatch(page, scene.Event{Type: scene.PointerMove, Point: to})
	p.Dispatch(page, scene.Event{Type: scene.PointerUp, Point: to})
}

func stored(id string, page int, r transform.Rect) *annotation.Record {
	g := scene.NewGroup(id, "rectangle")
	g.Add(&scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, Stroke: "#ff0000"}})
	return &annotation.Record{
		ID:         id,
		PageNumber: page,
		Type:       annotation.Rectangle,
		Subtype:    annotation.SubtypeSquare,
		Group:      scene.MustMarshal(g),
		Rect:       r,
		Color:      "#ff0000",
	}
}

func TestRectangleOnSecondPage(t *testing.T) {
	p, rec := newPainter(t)
	p.PageRendered(&view{page: 2})
	p.Activate(def(t, annotation.Rectangle), "")

	drag(p, 2, r2.Point{X: 50, Y: 50}, r2.Point{X: 150, Y: 120})

	records := p.Store().GetByPage(2)
	require.Len(t, records, 1)
	assert.Equal(t, annotation.Rectangle, records[0].Type)
	assert.Equal(t, "#ff0000", records[0].Color)
	assert.Equal(t, []string{records[0].ID}, rec.added)
	assert.Empty(t, p.Store().GetByPage(1))
}

func TestDispatchToUnknownPageIsNoop(t *testing.T) {
	p, _ := newPainter(t)
	p.Activate(def(t, annotation.Rectangle), "")
	drag(p, 7, r2.Point{X: 50, Y: 50}, r2.Point{X: 150, Y: 120})
	assert.Empty(t, p.Data())
}

func TestTeardownIsIdempotent(t *testing.T) {
	p, _ := newPainter(t)
	p.PageRendered(&view{page: 2})
	stage, ok := p.Stage(2)
	require.True(t, ok)

	p.Teardown(2)
	p.Teardown(2)

	assert.True(t, stage.Destroyed())
	assert.Empty(t, p.Pages())
}

func TestStaleSurfacesAreSwept(t *testing.T) {
	p, _ := newPainter(t)
	first := &view{page: 1}
	p.PageRendered(first)
	p.PageRendered(&view{page: 2})
	stage, _ := p.Stage(1)

	first.detached = true
	p.PageRendered(&view{page: 3})

	assert.Equal(t, []int{2, 3}, p.Pages())
	assert.True(t, stage.Destroyed())
}

func TestRescaleKeepsNodes(t *testing.T) {
	p, _ := newPainter(t)
	p.PageRendered(&view{page: 1})
	p.Activate(def(t, annotation.Rectangle), "")
	drag(p, 1, r2.Point{X: 50, Y: 50}, r2.Point{X: 150, Y: 120})
	before, _ := p.Stage(1)

	p.PageRendered(&view{page: 1, scale: 2})

	after, _ := p.Stage(1)
	assert.Same(t, before, after)
	assert.Equal(t, 2.0, after.Viewport().Scale)
	assert.Len(t, after.Groups(), 1)
}

func TestReinsertRehydratesStoredRecords(t *testing.T) {
	p, _ := newPainter(t)
	p.PageRendered(&view{page: 1})
	p.Activate(def(t, annotation.Circle), "")
	drag(p, 1, r2.Point{X: 50, Y: 50}, r2.Point{X: 150, Y: 120})

	p.Teardown(1)
	p.PageRendered(&view{page: 1})

	stage, ok := p.Stage(1)
	require.True(t, ok)
	require.Len(t, stage.Groups(), 1)
	assert.Equal(t, p.Data()[0].ID, stage.Groups()[0].ID)
	assert.NotNil(t, stage.Handler(), "the current tool is enabled on new surfaces")
}

func TestActivateEnablesEverySurface(t *testing.T) {
	p, _ := newPainter(t)
	p.PageRendered(&view{page: 1})
	p.PageRendered(&view{page: 2})
	p.Activate(def(t, annotation.FreeHand), "")

	drag(p, 1, r2.Point{X: 10, Y: 10}, r2.Point{X: 60, Y: 60})
	drag(p, 2, r2.Point{X: 10, Y: 10}, r2.Point{X: 60, Y: 60})

	assert.Len(t, p.Store().GetByPage(1), 1)
	assert.Len(t, p.Store().GetByPage(2), 1)
}

func TestOneShotReturnsToDefaultTool(t *testing.T) {
	payload, err := scene.EncodeDataURL(stdimage.NewRGBA(stdimage.Rect(0, 0, 40, 20)))
	require.NoError(t, err)

	p, rec := newPainter(t)
	p.PageRendered(&view{page: 1})
	p.Activate(def(t, annotation.Signature), payload)

	p.Dispatch(1, scene.Event{Type: scene.PointerDown, Point: r2.Point{X: 100, Y: 100}})

	require.Len(t, p.Data(), 1)
	id := p.Data()[0].ID
	assert.Equal(t, annotation.Select, p.Current().Type)
	assert.Equal(t, id, p.Store().Selected().ID)
	assert.Equal(t, []string{id}, rec.selected)
	assert.Equal(t, []bool{true}, rec.clicks)

	// a second click selects instead of placing another signature
	p.Dispatch(1, scene.Event{Type: scene.PointerDown, Point: r2.Point{X: 300, Y: 300}})
	assert.Len(t, p.Data(), 1)
}

func TestEscapeLeavesStampTool(t *testing.T) {
	p, _ := newPainter(t)
	p.PageRendered(&view{page: 1})
	p.Activate(def(t, annotation.Stamp), "")

	p.Dispatch(1, scene.Event{Type: scene.KeyUp, Key: scene.KeyEscape})
	assert.Equal(t, annotation.Select, p.Current().Type)
}

func TestHighlightWaitsForSurface(t *testing.T) {
	p, rec := newPainter(t)
	n := p.LoadAnnotations([]*annotation.Record{stored("a", 3, transform.Rect{X: 10, Y: 10, Width: 20, Height: 20})}, nil)
	require.Equal(t, 1, n)

	done := make(chan error, 1)
	go func() { done <- p.Highlight(context.Background(), "a") }()
	p.PageRendered(&view{page: 3})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("highlight never returned")
	}
	assert.Equal(t, "a", p.Store().Selected().ID)
	assert.Equal(t, store.SourceSidebar, p.Store().Selected().Source)
	assert.Equal(t, []string{"a"}, rec.selected)
}

func TestHighlightGivesUp(t *testing.T) {
	p, _ := newPainter(t)
	p.LoadAnnotations([]*annotation.Record{stored("a", 3, transform.Rect{Width: 20, Height: 20})}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Highlight(ctx, "a"), context.Canceled)
	assert.ErrorIs(t, p.Highlight(context.Background(), "ghost"), painter.ErrNotFound)
}

func TestLoadAnnotationsOverlaysExternal(t *testing.T) {
	p, _ := newPainter(t)
	p.PageRendered(&view{page: 1})

	a := stored("a", 1, transform.Rect{Width: 20, Height: 20})
	a.Native = true
	b := stored("b", 1, transform.Rect{X: 40, Width: 20, Height: 20})
	override := stored("a", 1, transform.Rect{Width: 20, Height: 20})
	override.Color = "#0000ff"
	c := stored("c", 2, transform.Rect{Width: 20, Height: 20})

	n := p.LoadAnnotations([]*annotation.Record{a, b}, []*annotation.Record{override, c})
	assert.Equal(t, 3, n)

	data := p.Data()
	require.Len(t, data, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{data[0].ID, data[1].ID, data[2].ID})
	assert.Equal(t, "#0000ff", data[0].Color)

	stage, _ := p.Stage(1)
	assert.Len(t, stage.Groups(), 2)

	// loading again replaces instead of duplicating
	assert.Equal(t, 1, p.LoadAnnotations(nil, []*annotation.Record{b}))
	assert.Len(t, p.Data(), 3)
	assert.Len(t, stage.Groups(), 2)
}

func TestSyncAnnotationsDropsMissing(t *testing.T) {
	p, rec := newPainter(t)
	p.PageRendered(&view{page: 1})
	p.LoadAnnotations([]*annotation.Record{
		stored("a", 1, transform.Rect{Width: 20, Height: 20}),
		stored("b", 1, transform.Rect{X: 50, Width: 20, Height: 20}),
	}, nil)

	moved := stored("b", 1, transform.Rect{X: 80, Width: 20, Height: 20})
	assert.Equal(t, 1, p.SyncAnnotations([]*annotation.Record{moved}))

	data := p.Data()
	require.Len(t, data, 1)
	assert.Equal(t, "b", data[0].ID)
	assert.Equal(t, 80.0, data[0].Rect.X)
	assert.Equal(t, []string{"a"}, rec.deleted)

	stage, _ := p.Stage(1)
	require.Len(t, stage.Groups(), 1)
	assert.Equal(t, "b", stage.Groups()[0].ID)
}

func TestDeleteRemovesGroup(t *testing.T) {
	p, rec := newPainter(t)
	p.PageRendered(&view{page: 1})
	p.LoadAnnotations([]*annotation.Record{stored("a", 1, transform.Rect{Width: 20, Height: 20})}, nil)

	assert.True(t, p.Delete("a"))
	assert.False(t, p.Delete("a"))

	stage, _ := p.Stage(1)
	assert.Empty(t, stage.Groups())
	assert.Equal(t, []string{"a"}, rec.deleted)
	assert.Empty(t, p.Data())
}

func TestSelectorMovesThroughPainter(t *testing.T) {
	p, rec := newPainter(t)
	p.LoadAnnotations([]*annotation.Record{stored("a", 1, transform.Rect{X: 100, Y: 100, Width: 100, Height: 50})}, nil)
	p.PageRendered(&view{page: 1})

	drag(p, 1, r2.Point{X: 150, Y: 120}, r2.Point{X: 160, Y: 140})

	got, ok := p.Store().Get("a")
	require.True(t, ok)
	assert.Equal(t, transform.Rect{X: 110, Y: 120, Width: 100, Height: 50}, got.Rect)
	assert.Equal(t, "a", p.Store().Selected().ID)
	assert.Equal(t, store.SourceCanvas, p.Store().Selected().Source)
	assert.Equal(t, []string{"a"}, rec.changed)

	g, err := scene.Unmarshal(got.Group)
	require.NoError(t, err)
	assert.Equal(t, 10.0, g.Transform().X)

	p.Dispatch(1, scene.Event{Type: scene.KeyUp, Key: scene.KeyDelete})
	assert.Empty(t, p.Data())
}

func TestChangePageClearsSelection(t *testing.T) {
	p, _ := newPainter(t)
	p.LoadAnnotations([]*annotation.Record{stored("a", 2, transform.Rect{X: 100, Y: 100, Width: 100, Height: 50})}, nil)
	p.PageRendered(&view{page: 2})
	require.True(t, p.Select("a"))
	assert.False(t, p.Select("ghost"))

	// the record is on the page being changed to, the selection still goes
	p.ChangePage(2)
	assert.Equal(t, 2, p.CurrentPage())
	assert.Empty(t, p.Store().Selected().ID)

	p.Dispatch(2, scene.Event{Type: scene.KeyUp, Key: scene.KeyDelete})
	assert.Len(t, p.Data(), 1)

	require.True(t, p.Select("a"))
	p.ChangePage(1)
	assert.Empty(t, p.Store().Selected().ID)
	p.Dispatch(2, scene.Event{Type: scene.KeyUp, Key: scene.KeyDelete})
	assert.Len(t, p.Data(), 1)
}

func TestCommitSelectsRecord(t *testing.T) {
	p, rec := newPainter(t)
	p.PageRendered(&view{page: 1})
	p.Activate(def(t, annotation.Rectangle), "")

	drag(p, 1, r2.Point{X: 50, Y: 50}, r2.Point{X: 150, Y: 120})

	require.Len(t, p.Data(), 1)
	id := p.Data()[0].ID
	assert.Equal(t, id, p.Store().Selected().ID)
	assert.Equal(t, store.SourceCanvas, p.Store().Selected().Source)
	assert.Equal(t, []string{id}, rec.selected)
	assert.Equal(t, []bool{true}, rec.clicks)

	// the rectangle tool stays active
	assert.Equal(t, annotation.Rectangle, p.Current().Type)
}

func TestUpdateAndStyle(t *testing.T) {
	p, rec := newPainter(t)
	p.PageRendered(&view{page: 1})
	p.LoadAnnotations([]*annotation.Record{stored("a", 1, transform.Rect{Width: 20, Height: 20})}, nil)

	updated, ok := p.Update("a", store.Partial{Contents: store.String("note")})
	require.True(t, ok)
	assert.Equal(t, "note", updated.Contents)

	styled, ok := p.UpdateStyle("a", annotation.Style{Color: "#00ff00"})
	require.True(t, ok)
	assert.Equal(t, "#00ff00", styled.Color)
	assert.Equal(t, []string{"a", "a"}, rec.changed)

	_, ok = p.UpdateStyle("ghost", annotation.Style{})
	assert.False(t, ok)
}

func TestHighlightSelection(t *testing.T) {
	p, _ := newPainter(t)
	p.PageRendered(&view{page: 1})
	p.Activate(def(t, annotation.Rectangle), "")

	out := p.HighlightSelection(map[int][]transform.Rect{
		1: {{X: 10, Y: 10, Width: 100, Height: 12}, {X: 10, Y: 30, Width: 80, Height: 12}},
		5: {{X: 10, Y: 10, Width: 100, Height: 12}},
	}, "some text", def(t, annotation.Highlight))

	require.Len(t, out, 1)
	assert.Equal(t, annotation.Highlight, out[0].Type)
	assert.Equal(t, "some text", out[0].Contents)

	// the rectangle tool is still active afterwards
	drag(p, 1, r2.Point{X: 200, Y: 200}, r2.Point{X: 300, Y: 300})
	assert.Len(t, p.Data(), 2)
}

func TestComments(t *testing.T) {
	p, _ := newPainter(t)
	p.LoadAnnotations([]*annotation.Record{stored("a", 1, transform.Rect{Width: 20, Height: 20})}, nil)

	rec, ok := p.AddComment("a", annotation.Comment{Content: "looks good", Status: annotation.StatusAccepted})
	require.True(t, ok)
	require.Len(t, rec.Comments, 1)
	c := rec.Comments[0]
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "tester", c.Title)
	assert.Equal(t, annotation.StatusAccepted, rec.LastStatus())

	rec, ok = p.UpdateComment("a", c.ID, "", "edited")
	require.True(t, ok)
	assert.Equal(t, "edited", rec.Comments[0].Content)

	rec, ok = p.DeleteComment("a", c.ID)
	require.True(t, ok)
	assert.Empty(t, rec.Comments)

	_, ok = p.DeleteComment("a", c.ID)
	assert.False(t, ok)
	_, ok = p.AddComment("ghost", annotation.Comment{})
	assert.False(t, ok)
}

func TestViewAreaChangedIsDebounced(t *testing.T) {
	p, rec := newPainter(t)
	for i := 0; i < 5; i++ {
		p.ViewAreaChanged()
	}
	assert.Equal(t, 1, rec.viewArea)
}

func TestDestroy(t *testing.T) {
	p, _ := newPainter(t)
	p.PageRendered(&view{page: 1})
	stage, _ := p.Stage(1)

	p.Destroy()
	p.Destroy()
	assert.True(t, stage.Destroyed())

	p.PageRendered(&view{page: 2})
	assert.Empty(t, p.Pages())
}

func TestMergeRecords(t *testing.T) {
	a := &annotation.Record{ID: "a"}
	a2 := &annotation.Record{ID: "a", Contents: "external"}
	b := &annotation.Record{ID: "b"}

	out := painter.MergeRecords([]*annotation.Record{a, b}, []*annotation.Record{a2, nil})
	require.Len(t, out, 2)
	assert.Same(t, a2, out[0])
	assert.Same(t, b, out[1])
}
