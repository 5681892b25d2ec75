// Package task provides the task and tag domain model for taskmaster.
package task

import (
	"encoding/json"
	"strconv"
)

// Task is a top-level unit of work within a tag.
type Task struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Details      string   `json:"details,omitempty"`
	TestStrategy string   `json:"testStrategy,omitempty"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority,omitempty"`
	Dependencies []Ref    `json:"dependencies"`

	// Subtasks is omitted from JSON once empty.
	Subtasks []Subtask `json:"subtasks,omitempty"`

	// Extra holds unknown keys so they survive a read/write cycle.
	Extra map[string]json.RawMessage `json:"-"`
}

// Subtask is a unit of work scoped to a parent Task.
type Subtask struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Details      string   `json:"details,omitempty"`
	TestStrategy string   `json:"testStrategy,omitempty"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority,omitempty"`
	Dependencies []Ref    `json:"dependencies"`

	// ParentTaskID is a back-reference to the owning task.
	ParentTaskID int `json:"parentTaskId,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var taskKeys = map[string]bool{
	"id": true, "title": true, "description": true, "details": true,
	"testStrategy": true, "status": true, "priority": true,
	"dependencies": true, "subtasks": true,
}

var subtaskKeys = map[string]bool{
	"id": true, "title": true, "description": true, "details": true,
	"testStrategy": true, "status": true, "priority": true,
	"dependencies": true, "parentTaskId": true,
}

// MarshalJSON encodes the task, emitting an empty dependency list rather
// than null and appending unknown keys after the known ones.
func (t Task) MarshalJSON() ([]byte, error) {
	type alias Task
	a := alias(t)
	if a.Dependencies == nil {
		a.Dependencies = []Ref{}
	}
	data, err := marshalText(a)
	if err != nil {
		return nil, err
	}
	return appendExtra(data, t.Extra)
}

// UnmarshalJSON decodes the task and keeps unknown keys in Extra.
func (t *Task) UnmarshalJSON(data []byte) error {
	type alias Task
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, taskKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*t = Task(a)
	return nil
}

// MarshalJSON encodes the subtask like Task.MarshalJSON.
func (s Subtask) MarshalJSON() ([]byte, error) {
	type alias Subtask
	a := alias(s)
	if a.Dependencies == nil {
		a.Dependencies = []Ref{}
	}
	data, err := marshalText(a)
	if err != nil {
		return nil, err
	}
	return appendExtra(data, s.Extra)
}

// UnmarshalJSON decodes the subtask and keeps unknown keys in Extra.
func (s *Subtask) UnmarshalJSON(data []byte) error {
	type alias Subtask
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, subtaskKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*s = Subtask(a)
	return nil
}

// Ref returns the reference naming this task.
func (t *Task) Ref() Ref {
	return TaskRef(t.ID)
}

// Ref returns the subtask-qualified reference naming this subtask within
// parent.
func (s *Subtask) Ref(parent int) Ref {
	return SubtaskRef(parent, s.ID)
}

// EffectivePriority returns the task priority, defaulting to medium.
func (t *Task) EffectivePriority() Priority {
	if t.Priority == "" {
		return DefaultPriority
	}
	return t.Priority
}

// FindSubtask returns the subtask with the given id, or nil.
func (t *Task) FindSubtask(id int) *Subtask {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i]
		}
	}
	return nil
}

// NextSubtaskID returns max subtask id + 1.
func (t *Task) NextSubtaskID() int {
	max := 0
	for _, s := range t.Subtasks {
		if s.ID > max {
			max = s.ID
		}
	}
	return max + 1
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	out.Dependencies = append([]Ref(nil), t.Dependencies...)
	out.Extra = cloneExtra(t.Extra)
	if t.Subtasks != nil {
		out.Subtasks = make([]Subtask, len(t.Subtasks))
		for i, s := range t.Subtasks {
			s.Dependencies = append([]Ref(nil), s.Dependencies...)
			s.Extra = cloneExtra(s.Extra)
			out.Subtasks[i] = s
		}
	}
	return out
}

// FindTask returns the top-level task with the given id, or nil.
func FindTask(tasks []Task, id int) *Task {
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i]
		}
	}
	return nil
}

// NextID returns the next unused top-level id (max existing id + 1).
func NextID(tasks []Task) int {
	max := 0
	for _, t := range tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// Item is a read-only view over a task or subtask, used where callers treat
// both uniformly.
type Item struct {
	Ref          Ref
	Title        string
	Status       Status
	Priority     Priority
	Dependencies []Ref
}

// Lookup resolves a ref to an Item. The second return is false when the task
// or subtask does not exist.
func Lookup(tasks []Task, ref Ref) (Item, bool) {
	t := FindTask(tasks, ref.ID)
	if t == nil {
		return Item{}, false
	}
	if !ref.IsSubtask() {
		return Item{Ref: ref, Title: t.Title, Status: t.Status, Priority: t.EffectivePriority(), Dependencies: t.Dependencies}, true
	}
	s := t.FindSubtask(ref.Sub)
	if s == nil {
		return Item{}, false
	}
	prio := s.Priority
	if prio == "" {
		prio = t.EffectivePriority()
	}
	return Item{Ref: ref, Title: s.Title, Status: s.Status, Priority: prio, Dependencies: s.Dependencies}, true
}

// Exists reports whether ref names an existing task or subtask.
func Exists(tasks []Task, ref Ref) bool {
	_, ok := Lookup(tasks, ref)
	return ok
}

// Count returns the number of tasks and subtasks.
func Count(tasks []Task) (top, sub int) {
	for _, t := range tasks {
		top++
		sub += len(t.Subtasks)
	}
	return top, sub
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
