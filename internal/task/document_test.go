package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
)

func TestDetectShape(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Shape
	}{
		{"empty", "", ShapeEmpty},
		{"whitespace", "  \n", ShapeEmpty},
		{"legacy", `{"tasks": []}`, ShapeLegacy},
		{"tagged", `{"master": {"tasks": []}}`, ShapeTagged},
		{"empty object", `{}`, ShapeTagged},
		{"tag named tasks", `{"tasks": {"tasks": []}}`, ShapeTagged},
		{"array", `[1,2]`, ShapeInvalid},
		{"garbage", `{"tasks": [`, ShapeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectShape([]byte(tt.data)))
		})
	}
}

func TestParseDocument_Tagged(t *testing.T) {
	input := `{
		"feature": {"tasks": [{"id": 1, "title": "f", "status": "pending", "dependencies": [], "custom": {"a": 1}}], "metadata": {"created": "x"}},
		"master": {"tasks": [], "metadata": {}},
		"notATag": 42
	}`
	doc, err := ParseDocument([]byte(input))
	require.NoError(t, err)

	assert.False(t, doc.IsLegacy())
	assert.Equal(t, []string{"feature", "master", "notATag"}, doc.Keys())
	assert.Equal(t, []string{"feature", "master"}, doc.Tags())
	assert.True(t, doc.Has("feature"))
	assert.False(t, doc.Has("notATag"))
	assert.Equal(t, 1, doc.TaskCount("feature"))

	td, err := doc.Get("feature")
	require.NoError(t, err)
	require.Len(t, td.Tasks, 1)
	assert.Equal(t, "f", td.Tasks[0].Title)
	assert.JSONEq(t, `{"a": 1}`, string(td.Tasks[0].Extra["custom"]))

	_, err = doc.Get("missing")
	assert.ErrorIs(t, err, tmerrors.ErrTagNotFound)
}

func TestParseDocument_Legacy(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"tasks": [{"id": 1, "title": "a", "status": "done", "dependencies": []}]}`))
	require.NoError(t, err)

	assert.True(t, doc.IsLegacy())
	assert.Equal(t, []string{DefaultTag}, doc.Tags())
	td, err := doc.Get(DefaultTag)
	require.NoError(t, err)
	assert.Len(t, td.Tasks, 1)

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, ShapeTagged, DetectShape(out))
}

func TestParseDocument_Invalid(t *testing.T) {
	_, err := ParseDocument([]byte(`[]`))
	assert.Error(t, err)
	_, err = ParseDocument([]byte(`{"tasks": "nope"}`))
	assert.Error(t, err)
	_, err = ParseDocument([]byte(`{"tasks": {"title": "x"}, "notes": 1}`))
	assert.Error(t, err)
}

func TestDetectShape_TagNamedTasks(t *testing.T) {
	assert.Equal(t, ShapeTagged, DetectShape([]byte(`{"tasks": {"tasks": [], "metadata": {}}}`)))
	assert.Equal(t, ShapeTagged, DetectShape([]byte(`{"tasks": "junk", "master": {"tasks": []}}`)))
	assert.Equal(t, ShapeTagged, DetectShape([]byte(`{}`)))
	assert.Equal(t, ShapeLegacy, DetectShape([]byte(`{"tasks": []}`)))
}

func TestDocument_SetLeavesSiblingsUntouched(t *testing.T) {
	sibling := `{"tasks":[{"id":9,"title":"keep","status":"pending","dependencies":[],"weird":true}],"metadata":{"created":"2020-01-01T00:00:00.000Z"}}`
	doc, err := ParseDocument([]byte(`{"other":` + sibling + `,"master":{"tasks":[]}}`))
	require.NoError(t, err)

	td, err := doc.Get(DefaultTag)
	require.NoError(t, err)
	td.Tasks = append(td.Tasks, Task{ID: 1, Title: "new", Status: StatusPending})
	require.NoError(t, doc.Set(DefaultTag, td))

	raw, ok := doc.Raw("other")
	require.True(t, ok)
	assert.Equal(t, sibling, string(raw))
	assert.Equal(t, []string{"other", "master"}, doc.Keys())
}

func TestDocument_RenameDeleteClone(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.Set("a", &TagData{}))
	require.NoError(t, doc.Set("b", &TagData{}))

	clone := doc.Clone()

	assert.True(t, doc.Rename("a", "c"))
	assert.False(t, doc.Rename("missing", "d"))
	assert.False(t, doc.Rename("c", "b"))
	assert.Equal(t, []string{"c", "b"}, doc.Keys())

	assert.True(t, doc.Delete("b"))
	assert.False(t, doc.Delete("b"))
	assert.Equal(t, 1, doc.Len())

	assert.Equal(t, []string{"a", "b"}, clone.Keys())
}

func TestTagData_MarshalEmptyTasks(t *testing.T) {
	data, err := json.Marshal(&TagData{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tasks": [], "metadata": {}}`, string(data))
}

func TestMetadata_PreservesUnknownKeys(t *testing.T) {
	var m Metadata
	require.NoError(t, json.Unmarshal([]byte(`{"created":"c","projectName":"demo"}`), &m))
	assert.Equal(t, "c", m.Created)

	m.Updated = "u"
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"created":"c","updated":"u","projectName":"demo"}`, string(data))
}
