package store_test

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/store"
	"github.com/mgmeyers/pdfannotator/transform"
)

func newStore() *store.Store {
	log, _ := test.NewNullLogger()
	return store.New(log)
}

func rec(id string, page int) *annotation.Record {
	return &annotation.Record{
		ID:         id,
		PageNumber: page,
		Type:       annotation.Rectangle,
		Subtype:    annotation.SubtypeSquare,
		Color:      "#ff0000",
	}
}

func TestAddAndGetByPage(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Add(rec("a", 2), false))
	require.NoError(t, s.Add(rec("b", 1), false))
	require.NoError(t, s.Add(rec("c", 2), true))

	page2 := s.GetByPage(2)
	require.Len(t, page2, 2)
	assert.Equal(t, "a", page2[0].ID)
	assert.Equal(t, "c", page2[1].ID)

	got, ok := s.Get("b")
	require.True(t, ok)
	assert.Equal(t, 1, got.PageNumber)
	assert.Equal(t, annotation.Rectangle, got.Type)
	assert.Equal(t, "#ff0000", got.Color)
}

func TestAddRejectsInvalid(t *testing.T) {
	s := newStore()
	s.SetPageCount(3)

	require.NoError(t, s.Add(rec("a", 1), false))
	assert.ErrorIs(t, s.Add(rec("a", 1), false), store.ErrDuplicateID)
	assert.ErrorIs(t, s.Add(rec("b", 0), false), store.ErrInvalidPage)
	assert.ErrorIs(t, s.Add(rec("b", 4), false), store.ErrInvalidPage)
	assert.ErrorIs(t, s.Add(rec("", 1), false), store.ErrMissingID)
	assert.Equal(t, 1, s.Len())
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := newStore()
	r := rec("a", 1)
	require.NoError(t, s.Add(r, false))
	r.Color = "#000000"

	got, _ := s.Get("a")
	got.Color = "#00ff00"

	again, _ := s.Get("a")
	assert.Equal(t, "#ff0000", again.Color)
}

func TestUpdateShallowMerge(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Add(rec("a", 1), false))

	updated, ok := s.Update("a", store.Partial{
		Contents: store.String("hello"),
		Rect:     &transform.Rect{X: 1, Y: 2, Width: 3, Height: 4},
		Opacity:  annotation.Float(0.5),
	})
	require.True(t, ok)
	assert.Equal(t, "hello", updated.Contents)
	assert.Equal(t, "#ff0000", updated.Color)
	assert.Equal(t, 0.5, *updated.Opacity)

	updated, ok = s.Update("a", store.Partial{Color: store.String("#0000ff")})
	require.True(t, ok)
	assert.Equal(t, "hello", updated.Contents)
	assert.Equal(t, "#0000ff", updated.Color)

	_, ok = s.Update("missing", store.Partial{Color: store.String("#0000ff")})
	assert.False(t, ok)
}

func TestUpdateComments(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Add(rec("a", 1), false))

	comments := []annotation.Comment{{ID: "1", Content: "first"}, {ID: "2", Content: "second"}}
	updated, _ := s.Update("a", store.Partial{Comments: comments})
	require.Len(t, updated.Comments, 2)
	assert.Equal(t, "first", updated.Comments[0].Content)

	updated, _ = s.Update("a", store.Partial{SetComments: true})
	assert.Empty(t, updated.Comments)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Add(rec("a", 1), false))
	s.SetSelected(rec("a", 1), store.SourceCanvas)

	var deleted []string
	s.Subscribe(store.SourceNone, func(ev store.Event) {
		if ev.Type == store.EventDeleted {
			deleted = append(deleted, ev.ID)
		}
	})

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, []string{"a"}, deleted)
	assert.Empty(t, s.Selected().ID)
	assert.Empty(t, s.GetByPage(1))
}

func TestSelectionExclusivity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newStore()
		n := rapid.IntRange(2, 10).Draw(t, "n")
		for i := 0; i < n; i++ {
			if err := s.Add(rec(fmt.Sprint(i), 1), false); err != nil {
				t.Fatal(err)
			}
		}
		sources := rapid.SampledFrom([]store.SelectionSource{store.SourceCanvas, store.SourceSidebar})

		a := rapid.IntRange(0, n-1).Draw(t, "a")
		b := rapid.IntRange(0, n-1).Draw(t, "b")
		s.SetSelected(rec(fmt.Sprint(a), 1), sources.Draw(t, "s1"))
		s.SetSelected(rec(fmt.Sprint(b), 1), sources.Draw(t, "s2"))

		if got := s.Selected().ID; got != fmt.Sprint(b) {
			t.Fatalf("selected %q, want %q", got, fmt.Sprint(b))
		}
	})
}

func TestSelectionLoopGuard(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Add(rec("a", 1), false))

	var canvasHeard, sidebarHeard int
	s.Subscribe(store.SourceCanvas, func(ev store.Event) {
		if ev.Type == store.EventSelected {
			canvasHeard++
			// the canvas reacts by selecting the same record again
			s.SetSelected(ev.Record, store.SourceCanvas)
		}
	})
	s.Subscribe(store.SourceSidebar, func(ev store.Event) {
		if ev.Type == store.EventSelected {
			sidebarHeard++
			s.SetSelected(ev.Record, store.SourceSidebar)
		}
	})

	s.SetSelected(rec("a", 1), store.SourceCanvas)
	assert.Equal(t, 0, canvasHeard)
	assert.Equal(t, 1, sidebarHeard)
	assert.Equal(t, store.SourceSidebar, s.Selected().Source)

	s.SetSelected(nil, store.SourceSidebar)
	assert.Empty(t, s.Selected().ID)
}

func TestSelectUnknownIsIgnored(t *testing.T) {
	s := newStore()
	s.SetSelected(rec("ghost", 1), store.SourceCanvas)
	assert.Empty(t, s.Selected().ID)
}

func TestUnsubscribe(t *testing.T) {
	s := newStore()
	calls := 0
	unsubscribe := s.Subscribe(store.SourceNone, func(store.Event) { calls++ })

	require.NoError(t, s.Add(rec("a", 1), false))
	unsubscribe()
	require.NoError(t, s.Add(rec("b", 1), false))

	assert.Equal(t, 1, calls)
}

func TestClearAll(t *testing.T) {
	s := newStore()
	require.NoError(t, s.Add(rec("a", 1), false))
	require.NoError(t, s.Add(rec("b", 2), false))

	s.ClearAll()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.All())
}

func TestNilLoggerFallsBack(t *testing.T) {
	s := store.New(nil)
	require.NotNil(t, s)
	require.NoError(t, s.Add(rec("a", 1), false))
}
