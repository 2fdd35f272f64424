package annotation_test

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/transform"
)

func TestTypeText(t *testing.T) {
	for _, d := range annotation.Definitions {
		b, err := d.Type.MarshalText()
		require.NoError(t, err)

		var back annotation.Type
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, d.Type, back)
	}

	var bad annotation.Type
	assert.Error(t, bad.UnmarshalText([]byte("HEXAGON")))
}

func TestRecordIsPlainData(t *testing.T) {
	r := annotation.Record{
		ID:          "a",
		PageNumber:  2,
		Type:        annotation.Rectangle,
		Subtype:     annotation.SubtypeSquare,
		Rect:        transform.Rect{X: 1, Y: 2, Width: 3, Height: 4},
		Color:       "#ff0000",
		StrokeWidth: annotation.Float(2),
		Comments:    []annotation.Comment{{ID: "c", Content: "ok", Status: annotation.StatusAccepted}},
	}

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"RECTANGLE"`)

	var fromJSON annotation.Record
	require.NoError(t, json.Unmarshal(b, &fromJSON))
	assert.Equal(t, r, fromJSON)

	y, err := yaml.Marshal(r)
	require.NoError(t, err)

	var fromYAML annotation.Record
	require.NoError(t, yaml.Unmarshal(y, &fromYAML))
	assert.Equal(t, r, fromYAML)
}

func TestLastStatus(t *testing.T) {
	r := &annotation.Record{}
	assert.Equal(t, annotation.StatusNone, r.LastStatus())

	r.Comments = []annotation.Comment{
		{ID: "1", Status: annotation.StatusRejected},
		{ID: "2", Status: annotation.StatusAccepted},
		{ID: "3"},
	}
	assert.Equal(t, annotation.StatusAccepted, r.LastStatus())
}

func TestReplyHelpers(t *testing.T) {
	comments := annotation.AddReply(nil, annotation.Comment{ID: "1", Title: "ann", Content: "first"})
	comments = annotation.AddReply(comments, annotation.Comment{ID: "2", Title: "bob", Content: "second"})
	require.Len(t, comments, 2)
	assert.Equal(t, "1", comments[0].ID)

	updated, ok := annotation.UpdateReply(comments, "2", "", "edited", "D:2024")
	require.True(t, ok)
	assert.Equal(t, "edited", updated[1].Content)
	assert.Equal(t, "bob", updated[1].Title)
	assert.Equal(t, "second", comments[1].Content)

	_, ok = annotation.UpdateReply(comments, "missing", "", "", "")
	assert.False(t, ok)

	remaining, ok := annotation.DeleteReply(updated, "1")
	require.True(t, ok)
	require.Len(t, remaining, 1)
	assert.Equal(t, "2", remaining[0].ID)
}

func TestFilterAndTitles(t *testing.T) {
	records := []*annotation.Record{
		{ID: "1", Title: "ann", Type: annotation.Rectangle},
		{ID: "2", Title: "bob", Type: annotation.Circle, Comments: []annotation.Comment{{Title: "cy"}}},
		{ID: "3", Title: "ann", Type: annotation.Circle},
	}

	got := annotation.FilterRecords(records, annotation.Filter{Titles: []string{"ann"}, Types: []annotation.Type{annotation.Circle}})
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	assert.Len(t, annotation.FilterRecords(records, annotation.Filter{}), 3)
	assert.Equal(t, []string{"ann", "bob", "cy"}, annotation.Titles(records))
}

func TestByPage(t *testing.T) {
	records := []*annotation.Record{
		{ID: "c", PageNumber: 2},
		{ID: "b", PageNumber: 1, Rect: transform.Rect{Y: 50}},
		{ID: "a", PageNumber: 1, Rect: transform.Rect{Y: 10}},
	}
	sort.Sort(annotation.ByPage(records))

	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, "c", records[2].ID)
}

func TestDefinitions(t *testing.T) {
	d, ok := annotation.DefinitionFor(annotation.Signature)
	require.True(t, ok)
	assert.True(t, d.IsOnce)

	assert.Equal(t, annotation.Select, annotation.DefaultDefinition().Type)

	_, ok = annotation.DefinitionFor(annotation.Type(99))
	assert.False(t, ok)
}
