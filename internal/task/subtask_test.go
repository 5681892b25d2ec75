package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
)

func TestResolveDep(t *testing.T) {
	tasks := []Task{
		{ID: 1, Title: "a"},
		{ID: 2, Title: "b", Subtasks: []Subtask{{ID: 1}, {ID: 3}}},
	}
	owner := SubtaskRef(2, 3)

	assert.Equal(t, SubtaskRef(2, 1), ResolveDep(tasks, owner, TaskRef(1)), "sibling wins")
	assert.Equal(t, TaskRef(2), ResolveDep(tasks, owner, TaskRef(2)), "no sibling 2, so top-level")
	assert.Equal(t, SubtaskRef(9, 9), ResolveDep(tasks, owner, SubtaskRef(9, 9)))
	assert.Equal(t, TaskRef(1), ResolveDep(tasks, TaskRef(2), TaskRef(1)), "top-level owner")
}

func TestAddSubtask(t *testing.T) {
	td := &TagData{Tasks: []Task{{ID: 1, Title: "a"}, {ID: 2, Title: "b", Subtasks: []Subtask{{ID: 4, Title: "x"}}}}}

	s, err := AddSubtask(td, 2, SubtaskInput{Title: "new", Dependencies: []Ref{TaskRef(1), SubtaskRef(2, 4), TaskRef(1)}})
	require.NoError(t, err)
	assert.Equal(t, 5, s.ID)
	assert.Equal(t, 2, s.ParentTaskID)
	assert.Equal(t, StatusPending, s.Status)
	assert.Equal(t, []Ref{TaskRef(1), SubtaskRef(2, 4)}, s.Dependencies)

	_, err = AddSubtask(td, 9, SubtaskInput{Title: "x"})
	assert.ErrorIs(t, err, tmerrors.ErrParentNotFound)
	_, err = AddSubtask(td, 2, SubtaskInput{Title: " "})
	assert.ErrorIs(t, err, tmerrors.ErrInvalidTaskField)
	_, err = AddSubtask(td, 2, SubtaskInput{Title: "x", Dependencies: []Ref{TaskRef(42)}})
	assert.ErrorIs(t, err, tmerrors.ErrInvalidDependency)
}

func TestRemoveSubtask_LastSubtaskDropsKey(t *testing.T) {
	td := &TagData{Tasks: []Task{{ID: 1, Title: "a", Status: StatusPending, Subtasks: []Subtask{{ID: 1, Title: "only", Status: StatusPending}}}}}

	converted, err := RemoveSubtask(td, "1.1", false)
	require.NoError(t, err)
	assert.Nil(t, converted)
	assert.Nil(t, td.Tasks[0].Subtasks)

	data, err := json.Marshal(td.Tasks[0])
	require.NoError(t, err)
	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.NotContains(t, obj, "subtasks")
}

func TestRemoveSubtask_StripsReferences(t *testing.T) {
	td := &TagData{Tasks: []Task{
		{ID: 1, Title: "a", Subtasks: []Subtask{
			{ID: 1, Title: "s1"},
			{ID: 2, Title: "s2", Dependencies: []Ref{TaskRef(1)}},
			{ID: 3, Title: "s3", Dependencies: []Ref{SubtaskRef(1, 1), TaskRef(2)}},
		}},
		{ID: 2, Title: "b", Dependencies: []Ref{SubtaskRef(1, 1), TaskRef(1)}},
	}}

	_, err := RemoveSubtask(td, "1.1", false)
	require.NoError(t, err)

	require.Len(t, td.Tasks[0].Subtasks, 2)
	assert.Empty(t, td.Tasks[0].Subtasks[0].Dependencies)
	assert.Equal(t, []Ref{TaskRef(2)}, td.Tasks[0].Subtasks[1].Dependencies)
	assert.Equal(t, []Ref{TaskRef(1)}, td.Tasks[1].Dependencies)
}

func TestRemoveSubtask_Convert(t *testing.T) {
	td := &TagData{Tasks: []Task{
		{ID: 1, Title: "parent", Priority: PriorityHigh, Subtasks: []Subtask{
			{ID: 1, Title: "s1"},
			{ID: 2, Title: "s2", Description: "d", Dependencies: []Ref{TaskRef(1)}},
		}},
		{ID: 5, Title: "other"},
	}}

	converted, err := RemoveSubtask(td, "1.2", true)
	require.NoError(t, err)
	require.NotNil(t, converted)

	assert.Equal(t, 6, converted.ID)
	assert.Equal(t, "s2", converted.Title)
	assert.Equal(t, "d", converted.Description)
	assert.Equal(t, StatusPending, converted.Status)
	assert.Equal(t, PriorityHigh, converted.Priority)
	assert.Equal(t, []Ref{SubtaskRef(1, 1), TaskRef(1)}, converted.Dependencies)
	assert.Len(t, td.Tasks, 3)
	assert.Len(t, td.Tasks[0].Subtasks, 1)
}

func TestRemoveSubtask_Errors(t *testing.T) {
	td := &TagData{Tasks: []Task{{ID: 1, Title: "a", Subtasks: []Subtask{{ID: 1}}}}}

	tests := []struct {
		id      string
		wantErr error
	}{
		{"1", tmerrors.ErrInvalidSubtaskID},
		{"1.x", tmerrors.ErrInvalidSubtaskID},
		{"", tmerrors.ErrInvalidSubtaskID},
		{"9.1", tmerrors.ErrParentNotFound},
		{"1.9", tmerrors.ErrSubtaskNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := RemoveSubtask(td, tt.id, false)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Len(t, td.Tasks[0].Subtasks, 1, "failed removals must not change anything")
}

func TestClearSubtasks(t *testing.T) {
	td := &TagData{Tasks: []Task{
		{ID: 1, Title: "a", Subtasks: []Subtask{{ID: 1}, {ID: 2}}},
		{ID: 2, Title: "b", Dependencies: []Ref{SubtaskRef(1, 2)}, Subtasks: []Subtask{{ID: 1}}},
	}}

	n, err := ClearSubtasks(td, []int{1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Nil(t, td.Tasks[0].Subtasks)
	assert.Empty(t, td.Tasks[1].Dependencies)
	assert.Len(t, td.Tasks[1].Subtasks, 1)

	_, err = ClearSubtasks(td, []int{7})
	assert.ErrorIs(t, err, tmerrors.ErrTaskNotFound)

	n, err = ClearSubtasks(td, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
