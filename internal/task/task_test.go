package task

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTaskJSON_PreservesUnknownKeys(t *testing.T) {
	input := `{"id":1,"title":"a","description":"","status":"pending","dependencies":[],"complexity":7,"subtasks":[{"id":1,"title":"s","description":"","status":"done","dependencies":[],"owner":"bob"}]}`

	var task Task
	if err := json.Unmarshal([]byte(input), &task); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(task.Extra["complexity"]) != "7" {
		t.Errorf("complexity = %s, want 7", task.Extra["complexity"])
	}
	if string(task.Subtasks[0].Extra["owner"]) != `"bob"` {
		t.Errorf("owner = %s, want \"bob\"", task.Subtasks[0].Extra["owner"])
	}

	out, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"complexity":7`, `"owner":"bob"`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}

func TestTaskJSON_EmptyCollections(t *testing.T) {
	out, err := json.Marshal(Task{ID: 1, Title: "a", Status: StatusPending})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"dependencies":[]`) {
		t.Errorf("nil dependencies should encode as [], got %s", out)
	}
	if strings.Contains(string(out), "subtasks") {
		t.Errorf("empty subtasks should be omitted, got %s", out)
	}
}

func TestNextID(t *testing.T) {
	tests := []struct {
		name  string
		tasks []Task
		want  int
	}{
		{"empty", nil, 1},
		{"sequential", []Task{{ID: 1}, {ID: 2}}, 3},
		{"gap", []Task{{ID: 1}, {ID: 7}, {ID: 3}}, 8},
	}
	for _, tt := range tests {
		if got := NextID(tt.tasks); got != tt.want {
			t.Errorf("%s: NextID() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestLookup(t *testing.T) {
	tasks := []Task{
		{ID: 1, Title: "parent", Priority: PriorityHigh, Subtasks: []Subtask{{ID: 2, Title: "child"}}},
	}

	item, ok := Lookup(tasks, SubtaskRef(1, 2))
	if !ok {
		t.Fatal("expected subtask 1.2 to exist")
	}
	if item.Priority != PriorityHigh {
		t.Errorf("subtask should inherit parent priority, got %s", item.Priority)
	}

	if _, ok := Lookup(tasks, SubtaskRef(1, 3)); ok {
		t.Error("1.3 should not exist")
	}
	if _, ok := Lookup(tasks, TaskRef(2)); ok {
		t.Error("2 should not exist")
	}
	if !Exists(tasks, TaskRef(1)) {
		t.Error("1 should exist")
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := Task{ID: 1, Dependencies: []Ref{TaskRef(2)}, Subtasks: []Subtask{{ID: 1, Dependencies: []Ref{TaskRef(3)}}}}
	c := orig.Clone()
	c.Dependencies[0] = TaskRef(9)
	c.Subtasks[0].Dependencies[0] = TaskRef(9)

	if orig.Dependencies[0] != TaskRef(2) || orig.Subtasks[0].Dependencies[0] != TaskRef(3) {
		t.Error("clone shares dependency slices with the original")
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		status   Status
		valid    bool
		complete bool
	}{
		{StatusPending, true, false},
		{StatusInProgress, true, false},
		{StatusDone, true, true},
		{StatusCancelled, true, true},
		{StatusDeferred, true, false},
		{Status("bogus"), false, false},
	}
	for _, tt := range tests {
		if IsValidStatus(tt.status) != tt.valid {
			t.Errorf("IsValidStatus(%s) = %v, want %v", tt.status, !tt.valid, tt.valid)
		}
		if tt.status.IsComplete() != tt.complete {
			t.Errorf("%s.IsComplete() = %v, want %v", tt.status, !tt.complete, tt.complete)
		}
	}
}

func TestCheckFields(t *testing.T) {
	tasks := []Task{
		{ID: 1, Title: "ok", Status: StatusPending},
		{ID: 1, Title: "dup", Status: StatusPending},
		{ID: 2, Title: "", Status: "nope", Subtasks: []Subtask{{ID: 1, Title: "a"}, {ID: 1, Title: "b", Priority: "urgent"}}},
	}
	problems := CheckFields(tasks)

	var got []string
	for _, p := range problems {
		got = append(got, p.Ref.String()+" "+p.Field)
	}
	want := []string{"1 id", "2 title", "2 status", "2.1 id", "2.1 priority"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("CheckFields() = %v, want %v", got, want)
	}

	if len(CheckFields([]Task{{ID: 1, Title: "fine", Status: StatusDone, Priority: PriorityLow}})) != 0 {
		t.Error("valid task reported problems")
	}
}
