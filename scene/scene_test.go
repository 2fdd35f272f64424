package scene_test

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgmeyers/pdfannotator/scene"
	"github.com/mgmeyers/pdfannotator/transform"
)

func rectGroup(id string) *scene.Node {
	g := scene.NewGroup(id, "rectangle")
	g.Attrs.X, g.Attrs.Y = 10, 20
	g.Add(&scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{X: 0, Y: 0, Width: 100, Height: 50, Stroke: "#ff0000"}})
	return g
}

func TestMarshalRoundTrip(t *testing.T) {
	g := rectGroup("a1")
	g.Attrs.ScaleX = 2

	s, err := scene.Marshal(g)
	require.NoError(t, err)
	assert.Contains(t, s, `"version":1`)

	back, err := scene.Unmarshal(s)
	require.NoError(t, err)
	assert.Equal(t, "a1", back.ID)
	require.Len(t, back.Children, 1)
	assert.Same(t, back, back.Children[0].Parent())
	assert.Equal(t, g.ClientRect(), back.ClientRect())
}

func TestUnmarshalLegacyBareNode(t *testing.T) {
	back, err := scene.Unmarshal(`{"kind":"Group","id":"x","attrs":{"x":5},"children":[{"kind":"Rect","attrs":{"width":10,"height":10}}]}`)
	require.NoError(t, err)

	assert.Equal(t, transform.Rect{X: 5, Y: 0, Width: 10, Height: 10}, back.ClientRect())
}

func TestUnmarshalFutureVersionKeepsUnknownKinds(t *testing.T) {
	back, err := scene.Unmarshal(`{"version":7,"group":{"kind":"Group","attrs":{},"newField":1,"children":[{"kind":"Spline","attrs":{}},{"kind":"Rect","attrs":{"width":4,"height":4}}]}}`)
	require.NoError(t, err)

	require.Len(t, back.Children, 2)
	assert.Equal(t, scene.Kind("Spline"), back.Children[0].Kind)
	assert.Equal(t, transform.Rect{Width: 4, Height: 4}, back.ClientRect())
}

func TestUnmarshalErrors(t *testing.T) {
	cases := map[string]string{
		"empty":       "",
		"garbage":     "{not json",
		"not a group": `{"version":1,"group":{"kind":"Rect","attrs":{}}}`,
		"version 0":   `{"version":0,"group":{"kind":"Group","attrs":{}}}`,
		"no group":    `{"version":1}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := scene.Unmarshal(in)
			assert.Error(t, err)
		})
	}
}

func TestClientRectComposesScale(t *testing.T) {
	g := rectGroup("a")
	g.Attrs.ScaleX, g.Attrs.ScaleY = 2, 0.5

	assert.Equal(t, transform.Rect{X: 10, Y: 20, Width: 200, Height: 25}, g.ClientRect())
}

func TestClientRectIncludesStroke(t *testing.T) {
	g := scene.NewGroup("l", "")
	g.Add(&scene.Node{Kind: scene.KindLine, Attrs: scene.Attrs{Points: []float64{0, 0, 10, 0}, StrokeWidth: 2}})

	assert.Equal(t, transform.Rect{X: -1, Y: -1, Width: 12, Height: 2}, g.ClientRect())
}

func TestStageHitTestAndRemove(t *testing.T) {
	st := scene.NewStage(1, transform.Viewport{Width: 612, Height: 792, Scale: 1}, nil)
	st.AddGroup(rectGroup("bottom"))
	top := rectGroup("top")
	st.AddGroup(top)

	hit := st.HitTest(r2.Point{X: 50, Y: 40}, 0)
	require.NotNil(t, hit)
	assert.Equal(t, "top", hit.ID)
	assert.Nil(t, st.HitTest(r2.Point{X: 500, Y: 500}, 0))

	assert.True(t, st.RemoveGroup("top"))
	assert.False(t, st.RemoveGroup("top"))
	assert.Equal(t, "bottom", st.HitTest(r2.Point{X: 50, Y: 40}, 0).ID)
}

type container struct{ attached bool }

func (c *container) Attached() bool { return c.attached }

func TestStageDestroyStopsDispatch(t *testing.T) {
	c := &container{attached: true}
	st := scene.NewStage(1, transform.Viewport{}, c)
	calls := 0
	st.SetHandler(scene.HandlerFunc(func(*scene.Stage, scene.Event) { calls++ }))

	st.Dispatch(scene.Event{Type: scene.PointerDown})
	assert.Equal(t, 1, calls)
	assert.True(t, st.Attached())

	c.attached = false
	assert.False(t, st.Attached())

	st.Destroy()
	st.Dispatch(scene.Event{Type: scene.PointerDown})
	assert.Equal(t, 1, calls)
	assert.True(t, st.Destroyed())
}

func TestCloneIsDeep(t *testing.T) {
	g := scene.NewGroup("g", "")
	g.Add(&scene.Node{Kind: scene.KindPath, Attrs: scene.Attrs{Points: []float64{1, 2, 3, 4}}})

	c := g.Clone()
	c.Children[0].Attrs.Points[0] = 99

	assert.Equal(t, 1.0, g.Children[0].Attrs.Points[0])
	assert.Same(t, c, c.Children[0].Parent())
}
