package task

import (
	"strings"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
)

// ResolveDep normalises a dependency declared by owner. Inside a subtask a
// plain id names a sibling subtask when the parent has one with that id;
// otherwise it names a top-level task. Qualified refs are returned as is.
func ResolveDep(tasks []Task, owner, dep Ref) Ref {
	if !owner.IsSubtask() || dep.IsSubtask() {
		return dep
	}
	if p := FindTask(tasks, owner.ID); p != nil && p.FindSubtask(dep.ID) != nil {
		return SubtaskRef(owner.ID, dep.ID)
	}
	return dep
}

// SubtaskInput holds the fields for a new subtask.
type SubtaskInput struct {
	Title        string
	Description  string
	Details      string
	TestStrategy string
	Status       Status
	Dependencies []Ref
}

// AddSubtask appends a subtask to parentID with the next free subtask id.
func AddSubtask(td *TagData, parentID int, in SubtaskInput) (*Subtask, error) {
	parent := FindTask(td.Tasks, parentID)
	if parent == nil {
		return nil, tmerrors.ParentNotFound(parentID)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, tmerrors.InvalidTaskField("title", in.Title)
	}
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	if !IsValidStatus(status) {
		return nil, tmerrors.InvalidTaskField("status", string(status))
	}

	sub := Subtask{
		ID:           parent.NextSubtaskID(),
		Title:        in.Title,
		Description:  in.Description,
		Details:      in.Details,
		TestStrategy: in.TestStrategy,
		Status:       status,
		Dependencies: []Ref{},
		ParentTaskID: parentID,
	}
	self := SubtaskRef(parentID, sub.ID)
	for _, dep := range in.Dependencies {
		if dep == self {
			return nil, tmerrors.InvalidDependency(self.String(), dep.String(), "a subtask cannot depend on itself")
		}
		if !Exists(td.Tasks, dep) {
			return nil, tmerrors.InvalidDependency(self.String(), dep.String(), "dependency does not exist")
		}
		if !containsRef(sub.Dependencies, dep) {
			sub.Dependencies = append(sub.Dependencies, dep)
		}
	}

	parent.Subtasks = append(parent.Subtasks, sub)
	return &parent.Subtasks[len(parent.Subtasks)-1], nil
}

// RemoveSubtask removes the subtask named by id ("parent.sub"). References
// to it elsewhere in the tag are dropped, and the parent's subtasks key is
// removed when the list becomes empty.
//
// With convert set, the subtask becomes a new top-level task with the next
// free id, the parent's priority, and a dependency on the former parent.
// The new task is returned; without convert the result is nil.
func RemoveSubtask(td *TagData, id string, convert bool) (*Task, error) {
	ref, err := ParseSubtaskRef(id)
	if err != nil {
		return nil, err
	}

	parent := FindTask(td.Tasks, ref.ID)
	if parent == nil {
		return nil, tmerrors.ParentNotFound(ref.ID)
	}
	idx := -1
	for i := range parent.Subtasks {
		if parent.Subtasks[i].ID == ref.Sub {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, tmerrors.SubtaskNotFound(ref.ID, ref.Sub)
	}

	removed := parent.Subtasks[idx]
	// Qualify sibling shorthand before the sibling set changes.
	deps := make([]Ref, 0, len(removed.Dependencies))
	for _, dep := range removed.Dependencies {
		deps = append(deps, ResolveDep(td.Tasks, ref, dep))
	}

	parent.Subtasks = append(parent.Subtasks[:idx], parent.Subtasks[idx+1:]...)
	if len(parent.Subtasks) == 0 {
		parent.Subtasks = nil
	}
	parentID := parent.ID
	parentPriority := parent.EffectivePriority()
	stripSubtaskRefs(td.Tasks, ref)

	if !convert {
		return nil, nil
	}

	status := removed.Status
	if status == "" {
		status = StatusPending
	}
	converted := Task{
		ID:           NextID(td.Tasks),
		Title:        removed.Title,
		Description:  removed.Description,
		Details:      removed.Details,
		TestStrategy: removed.TestStrategy,
		Status:       status,
		Priority:     parentPriority,
		Extra:        cloneExtra(removed.Extra),
	}
	for _, dep := range deps {
		if dep != ref && !containsRef(converted.Dependencies, dep) {
			converted.Dependencies = append(converted.Dependencies, dep)
		}
	}
	if !containsRef(converted.Dependencies, TaskRef(parentID)) {
		converted.Dependencies = append(converted.Dependencies, TaskRef(parentID))
	}

	td.Tasks = append(td.Tasks, converted)
	return &td.Tasks[len(td.Tasks)-1], nil
}

// ClearSubtasks removes all subtasks from the given tasks (all tasks when ids
// is empty). It returns the number of subtasks removed.
func ClearSubtasks(td *TagData, ids []int) (int, error) {
	targets := ids
	if len(targets) == 0 {
		for _, t := range td.Tasks {
			targets = append(targets, t.ID)
		}
	}
	for _, id := range targets {
		if FindTask(td.Tasks, id) == nil {
			return 0, tmerrors.TaskNotFound(itoa(id))
		}
	}

	removed := 0
	for _, id := range targets {
		t := FindTask(td.Tasks, id)
		for _, s := range t.Subtasks {
			stripRefs(td.Tasks, SubtaskRef(id, s.ID))
		}
		removed += len(t.Subtasks)
		t.Subtasks = nil
	}
	return removed, nil
}

// stripSubtaskRefs drops references to a removed subtask, including plain
// sibling shorthand from subtasks of the same parent.
func stripSubtaskRefs(tasks []Task, removed Ref) {
	stripRefs(tasks, removed)
	parent := FindTask(tasks, removed.ID)
	if parent == nil {
		return
	}
	for i := range parent.Subtasks {
		s := &parent.Subtasks[i]
		s.Dependencies = filterRefs(s.Dependencies, func(dep Ref) bool {
			return !dep.IsSubtask() && dep.ID == removed.Sub
		})
	}
}

func containsRef(refs []Ref, ref Ref) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}
