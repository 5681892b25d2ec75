package deps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/taskmaster/internal/task"
)

func refs(ids ...int) []task.Ref {
	out := make([]task.Ref, len(ids))
	for i, id := range ids {
		out[i] = task.TaskRef(id)
	}
	return out
}

func tk(id int, deps ...int) task.Task {
	return task.Task{ID: id, Title: "t", Status: task.StatusPending, Dependencies: refs(deps...)}
}

func sub(id int, deps ...int) task.Subtask {
	return task.Subtask{ID: id, Title: "s", Status: task.StatusPending, Dependencies: refs(deps...)}
}

func TestIsCircular(t *testing.T) {
	tests := []struct {
		name  string
		tasks []task.Task
		start task.Ref
		want  bool
	}{
		{
			name:  "two task cycle",
			tasks: []task.Task{tk(1, 2), tk(2, 1)},
			start: task.TaskRef(1),
			want:  true,
		},
		{
			name:  "chain without cycle",
			tasks: []task.Task{tk(1, 2), tk(2, 3), tk(3)},
			start: task.TaskRef(1),
			want:  false,
		},
		{
			name:  "self loop",
			tasks: []task.Task{tk(1, 1)},
			start: task.TaskRef(1),
			want:  true,
		},
		{
			name: "subtask cycle through sibling shorthand",
			tasks: []task.Task{{
				ID: 1, Title: "p", Status: task.StatusPending,
				Subtasks: []task.Subtask{sub(1, 2), sub(2, 3), sub(3, 1)},
			}},
			start: task.SubtaskRef(1, 1),
			want:  true,
		},
		{
			name: "subtask chain without cycle",
			tasks: []task.Task{{
				ID: 1, Title: "p", Status: task.StatusPending,
				Subtasks: []task.Subtask{sub(1), sub(2, 1), sub(3, 2)},
			}},
			start: task.SubtaskRef(1, 1),
			want:  false,
		},
		{
			name:  "cycle not reachable from start",
			tasks: []task.Task{tk(1), tk(2, 3), tk(3, 2)},
			start: task.TaskRef(1),
			want:  false,
		},
		{
			name:  "unknown start",
			tasks: []task.Task{tk(1)},
			start: task.TaskRef(42),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCircular(tt.tasks, tt.start))
		})
	}
}

func TestIsCircular_SubtaskRefsAcrossParents(t *testing.T) {
	tasks := []task.Task{
		{ID: 1, Title: "a", Subtasks: []task.Subtask{{ID: 1, Title: "a1", Dependencies: []task.Ref{task.SubtaskRef(2, 1)}}}},
		{ID: 2, Title: "b", Subtasks: []task.Subtask{{ID: 1, Title: "b1", Dependencies: []task.Ref{task.SubtaskRef(1, 1)}}}},
	}
	assert.True(t, IsCircular(tasks, task.SubtaskRef(1, 1)))
}

func TestIsCircular_ExtraEdge(t *testing.T) {
	tasks := []task.Task{tk(1, 2), tk(2)}
	assert.False(t, IsCircular(tasks, task.TaskRef(2)))
	assert.True(t, IsCircular(tasks, task.TaskRef(2), Edge{From: task.TaskRef(2), To: task.TaskRef(1)}))
}

func TestIsCircular_LongChain(t *testing.T) {
	const n = 100000
	tasks := make([]task.Task, n)
	for i := range tasks {
		tasks[i] = tk(i+1, i+2)
	}
	tasks[n-1].Dependencies = nil
	assert.False(t, IsCircular(tasks, task.TaskRef(1)))

	tasks[n-1].Dependencies = refs(1)
	assert.True(t, IsCircular(tasks, task.TaskRef(1)))
}

func TestHasCycle(t *testing.T) {
	assert.False(t, HasCycle([]task.Task{tk(1), tk(2, 1), tk(3, 1, 2)}))
	assert.True(t, HasCycle([]task.Task{tk(1), tk(2, 3), tk(3, 2)}))
	assert.False(t, HasCycle(nil))
}

func TestFindCycles(t *testing.T) {
	tasks := []task.Task{tk(1, 3), tk(2, 1), tk(3, 2), tk(4, 4), tk(5, 1)}

	cycles := FindCycles(tasks)
	require.Len(t, cycles, 2)
	assert.Equal(t, []task.Ref{task.TaskRef(1), task.TaskRef(3), task.TaskRef(2)}, cycles[0])
	assert.Equal(t, []task.Ref{task.TaskRef(4)}, cycles[1])
}
