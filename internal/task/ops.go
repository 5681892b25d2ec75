package task

import (
	"sort"
	"strings"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
)

// TaskInput holds the fields for a new top-level task.
type TaskInput struct {
	Title        string
	Description  string
	Details      string
	TestStrategy string
	Status       Status
	Priority     Priority
	Dependencies []Ref
}

// AddTask appends a task with the next free id. Dependencies must exist.
func AddTask(td *TagData, in TaskInput) (*Task, error) {
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
	priority := in.Priority
	if priority == "" {
		priority = DefaultPriority
	}
	if !IsValidPriority(priority) {
		return nil, tmerrors.InvalidTaskField("priority", string(priority))
	}

	t := Task{
		ID:           NextID(td.Tasks),
		Title:        in.Title,
		Description:  in.Description,
		Details:      in.Details,
		TestStrategy: in.TestStrategy,
		Status:       status,
		Priority:     priority,
		Dependencies: []Ref{},
	}
	for _, dep := range in.Dependencies {
		if !Exists(td.Tasks, dep) {
			return nil, tmerrors.InvalidDependency(t.Ref().String(), dep.String(), "dependency does not exist")
		}
		if !containsRef(t.Dependencies, dep) {
			t.Dependencies = append(t.Dependencies, dep)
		}
	}

	td.Tasks = append(td.Tasks, t)
	return &td.Tasks[len(td.Tasks)-1], nil
}

// SetStatus sets the status of a task or subtask. Marking a task done also
// marks its subtasks done. It returns every ref whose status changed.
func SetStatus(td *TagData, ref Ref, status Status) ([]Ref, error) {
	if !IsValidStatus(status) {
		return nil, tmerrors.InvalidTaskField("status", string(status))
	}
	t := FindTask(td.Tasks, ref.ID)
	if t == nil {
		if ref.IsSubtask() {
			return nil, tmerrors.ParentNotFound(ref.ID)
		}
		return nil, tmerrors.TaskNotFound(ref.String())
	}

	var changed []Ref
	if ref.IsSubtask() {
		s := t.FindSubtask(ref.Sub)
		if s == nil {
			return nil, tmerrors.SubtaskNotFound(ref.ID, ref.Sub)
		}
		if s.Status != status {
			s.Status = status
			changed = append(changed, ref)
		}
		return changed, nil
	}

	if t.Status != status {
		t.Status = status
		changed = append(changed, ref)
	}
	if status == StatusDone {
		for i := range t.Subtasks {
			s := &t.Subtasks[i]
			if s.Status != StatusDone {
				s.Status = StatusDone
				changed = append(changed, s.Ref(t.ID))
			}
		}
	}
	return changed, nil
}

// RemoveTask removes a top-level task and every reference to it or its
// subtasks.
func RemoveTask(td *TagData, id int) (*Task, error) {
	idx := -1
	for i := range td.Tasks {
		if td.Tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, tmerrors.TaskNotFound(itoa(id))
	}
	removed := td.Tasks[idx]
	td.Tasks = append(td.Tasks[:idx], td.Tasks[idx+1:]...)
	stripRefs(td.Tasks, TaskRef(id))
	return &removed, nil
}

// RemoveReferences drops every dependency on target (and, for a top-level
// target, on its subtasks). It returns the number of references removed.
func RemoveReferences(tasks []Task, target Ref) int {
	return stripRefs(tasks, target)
}

func stripRefs(tasks []Task, target Ref) int {
	matches := func(dep Ref) bool {
		if dep == target {
			return true
		}
		return !target.IsSubtask() && dep.IsSubtask() && dep.ID == target.ID
	}
	removed := 0
	for i := range tasks {
		t := &tasks[i]
		before := len(t.Dependencies)
		t.Dependencies = filterRefs(t.Dependencies, matches)
		removed += before - len(t.Dependencies)
		for j := range t.Subtasks {
			s := &t.Subtasks[j]
			before := len(s.Dependencies)
			s.Dependencies = filterRefs(s.Dependencies, func(dep Ref) bool {
				// Plain ids inside a subtask may be sibling shorthand.
				return matches(ResolveDep(tasks, s.Ref(t.ID), dep))
			})
			removed += before - len(s.Dependencies)
		}
	}
	return removed
}

// filterRefs returns refs without the entries for which drop returns true.
// A nil input stays nil.
func filterRefs(refs []Ref, drop func(Ref) bool) []Ref {
	if refs == nil {
		return nil
	}
	out := refs[:0]
	for _, r := range refs {
		if !drop(r) {
			out = append(out, r)
		}
	}
	return out
}

// NextTask picks the next item to work on: subtasks of in-progress tasks
// first, then top-level tasks. Candidates must be pending or in-progress
// with every dependency complete. Ties break on priority, dependency count,
// then id.
func NextTask(tasks []Task) (Item, bool) {
	complete := make(map[Ref]bool)
	for _, t := range tasks {
		if t.Status.IsComplete() {
			complete[t.Ref()] = true
		}
		for _, s := range t.Subtasks {
			if s.Status.IsComplete() {
				complete[s.Ref(t.ID)] = true
			}
		}
	}
	ready := func(owner Ref, deps []Ref) bool {
		for _, dep := range deps {
			if !complete[ResolveDep(tasks, owner, dep)] {
				return false
			}
		}
		return true
	}
	eligible := func(s Status) bool {
		return s == StatusPending || s == StatusInProgress
	}

	var subCandidates []Item
	for _, t := range tasks {
		if t.Status != StatusInProgress {
			continue
		}
		for _, s := range t.Subtasks {
			ref := s.Ref(t.ID)
			if eligible(s.Status) && ready(ref, s.Dependencies) {
				item, _ := Lookup(tasks, ref)
				subCandidates = append(subCandidates, item)
			}
		}
	}
	if len(subCandidates) > 0 {
		sortItems(subCandidates)
		return subCandidates[0], true
	}

	var candidates []Item
	for _, t := range tasks {
		if eligible(t.Status) && ready(t.Ref(), t.Dependencies) {
			item, _ := Lookup(tasks, t.Ref())
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		return Item{}, false
	}
	sortItems(candidates)
	return candidates[0], true
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := PriorityOrder(items[i].Priority), PriorityOrder(items[j].Priority)
		if pi != pj {
			return pi < pj
		}
		if len(items[i].Dependencies) != len(items[j].Dependencies) {
			return len(items[i].Dependencies) < len(items[j].Dependencies)
		}
		if items[i].Ref.ID != items[j].Ref.ID {
			return items[i].Ref.ID < items[j].Ref.ID
		}
		return items[i].Ref.Sub < items[j].Ref.Sub
	})
}
