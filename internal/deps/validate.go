package deps

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
	"github.com/randalmurphal/taskmaster/internal/task"
)

// IssueKind classifies a dependency problem.
type IssueKind string

const (
	IssueSelf      IssueKind = "self"
	IssueDuplicate IssueKind = "duplicate"
	IssueMissing   IssueKind = "missing"
	IssueCircular  IssueKind = "circular"
)

// Issue is a single dependency problem found by Validate.
type Issue struct {
	Kind  IssueKind  `json:"type"`
	Owner task.Ref   `json:"taskId"`
	Dep   task.Ref   `json:"dependencyId,omitempty"`
	Cycle []task.Ref `json:"cycle,omitempty"`
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueSelf:
		return fmt.Sprintf("%s depends on itself", i.Owner)
	case IssueDuplicate:
		return fmt.Sprintf("%s lists %s more than once", i.Owner, i.Dep)
	case IssueMissing:
		return fmt.Sprintf("%s depends on missing %s", i.Owner, i.Dep)
	case IssueCircular:
		return fmt.Sprintf("circular dependency: %s", formatCycle(i.Cycle))
	}
	return string(i.Kind)
}

func formatCycle(cycle []task.Ref) string {
	if len(cycle) == 0 {
		return ""
	}
	s := ""
	for _, r := range cycle {
		s += r.String() + " -> "
	}
	return s + cycle[0].String()
}

// owner pairs a task or subtask ref with a pointer to its dependency list.
type owner struct {
	ref  task.Ref
	deps *[]task.Ref
}

func owners(tasks []task.Task) []owner {
	var out []owner
	for i := range tasks {
		t := &tasks[i]
		out = append(out, owner{ref: t.Ref(), deps: &t.Dependencies})
		for j := range t.Subtasks {
			s := &t.Subtasks[j]
			out = append(out, owner{ref: s.Ref(t.ID), deps: &s.Dependencies})
		}
	}
	return out
}

// classify returns the issue kind for dep in owner's list given the refs
// already kept, or "" when the dependency is sound.
func classify(tasks []task.Task, o task.Ref, resolved task.Ref, kept map[task.Ref]bool) IssueKind {
	switch {
	case resolved == o:
		return IssueSelf
	case kept[resolved]:
		return IssueDuplicate
	case !task.Exists(tasks, resolved):
		return IssueMissing
	}
	return ""
}

// Validate reports dependency problems without changing anything.
func Validate(tasks []task.Task) []Issue {
	var issues []Issue
	for _, o := range owners(tasks) {
		kept := make(map[task.Ref]bool)
		for _, dep := range *o.deps {
			resolved := task.ResolveDep(tasks, o.ref, dep)
			if kind := classify(tasks, o.ref, resolved, kept); kind != "" {
				issues = append(issues, Issue{Kind: kind, Owner: o.ref, Dep: resolved})
				continue
			}
			kept[resolved] = true
		}
	}
	for _, cycle := range FindCycles(tasks) {
		if len(cycle) == 1 {
			// already reported as a self dependency
			continue
		}
		issues = append(issues, Issue{Kind: IssueCircular, Owner: cycle[0], Cycle: cycle})
	}
	return issues
}

// fixTasks removes self, duplicate and dangling dependencies in place and
// reports whether anything changed. The first occurrence of a duplicate is
// kept, and sound dependencies keep their original form and order.
func fixTasks(tasks []task.Task) bool {
	changed := false
	for _, o := range owners(tasks) {
		deps := *o.deps
		if len(deps) == 0 {
			continue
		}
		kept := make(map[task.Ref]bool, len(deps))
		out := make([]task.Ref, 0, len(deps))
		for _, dep := range deps {
			resolved := task.ResolveDep(tasks, o.ref, dep)
			if classify(tasks, o.ref, resolved, kept) != "" {
				changed = true
				continue
			}
			kept[resolved] = true
			out = append(out, dep)
		}
		if len(out) != len(deps) {
			*o.deps = out
		}
	}
	return changed
}

// ValidateAndFix removes self-dependencies, duplicate entries and references
// to tasks or subtasks that do not exist. It reports whether anything was
// changed; it never writes to disk, so persisting the result is up to the
// caller.
//
// Accepted inputs: *task.TagData, *task.Document (every tag is fixed),
// []task.Task, and decoded JSON as map[string]any in either the plain
// {"tasks": [...]} or the tagged {"<tag>": {"tasks": [...]}} shape. Any other
// input, including nil or a missing or non-array tasks value, is a no-op
// returning false.
func ValidateAndFix(input any) bool {
	switch v := input.(type) {
	case *task.TagData:
		if v == nil {
			return false
		}
		return fixTasks(v.Tasks)
	case *task.Document:
		if v == nil {
			return false
		}
		return fixDocument(v)
	case []task.Task:
		return fixTasks(v)
	case map[string]any:
		return fixGeneric(v)
	default:
		return false
	}
}

func fixDocument(doc *task.Document) bool {
	changed := false
	for _, tag := range doc.Tags() {
		td, err := doc.Get(tag)
		if err != nil {
			continue
		}
		if fixTasks(td.Tasks) {
			if err := doc.Set(tag, td); err == nil {
				changed = true
			}
		}
	}
	return changed
}

// fixGeneric handles decoded JSON objects. Only the dependency arrays of the
// original maps are rewritten; every other key is left as decoded.
func fixGeneric(m map[string]any) bool {
	if m == nil {
		return false
	}
	if raw, ok := m["tasks"]; ok {
		return fixGenericTasks(raw)
	}
	changed := false
	for _, v := range m {
		tag, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if raw, ok := tag["tasks"]; ok && fixGenericTasks(raw) {
			changed = true
		}
	}
	return changed
}

func fixGenericTasks(raw any) bool {
	items, ok := raw.([]any)
	if !ok {
		return false
	}
	data, err := json.Marshal(items)
	if err != nil {
		return false
	}
	var tasks []task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return false
	}
	if !fixTasks(tasks) {
		return false
	}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		writeGenericDeps(obj, tasks[i].Dependencies)
		subs, _ := obj["subtasks"].([]any)
		for j, sub := range subs {
			if subObj, ok := sub.(map[string]any); ok && j < len(tasks[i].Subtasks) {
				writeGenericDeps(subObj, tasks[i].Subtasks[j].Dependencies)
			}
		}
	}
	return true
}

func writeGenericDeps(obj map[string]any, deps []task.Ref) {
	if _, ok := obj["dependencies"]; !ok {
		return
	}
	out := make([]any, 0, len(deps))
	for _, d := range deps {
		if d.IsSubtask() {
			out = append(out, d.String())
		} else {
			out = append(out, float64(d.ID))
		}
	}
	obj["dependencies"] = out
}

// CanAdd checks that from may depend on to: both exist, they differ, the
// edge is not already present and it would not close a cycle.
func CanAdd(tasks []task.Task, from, to task.Ref) error {
	if !task.Exists(tasks, from) {
		return tmerrors.TaskNotFound(from.String())
	}
	if !task.Exists(tasks, to) {
		return tmerrors.InvalidDependency(from.String(), to.String(), "dependency does not exist")
	}
	if from == to {
		return tmerrors.InvalidDependency(from.String(), to.String(), "a task cannot depend on itself")
	}
	item, _ := task.Lookup(tasks, from)
	for _, dep := range item.Dependencies {
		if task.ResolveDep(tasks, from, dep) == to {
			return tmerrors.InvalidDependency(from.String(), to.String(), "dependency already exists")
		}
	}
	if IsCircular(tasks, from, Edge{From: from, To: to}) {
		return tmerrors.CircularDependency(from.String(), to.String())
	}
	return nil
}

// AddDependency validates and appends the edge from -> to.
func AddDependency(td *task.TagData, from, to task.Ref) error {
	if err := CanAdd(td.Tasks, from, to); err != nil {
		return err
	}
	deps := depsOf(td.Tasks, from)
	*deps = append(*deps, to)
	return nil
}

// RemoveDependency removes the edge from -> to.
func RemoveDependency(td *task.TagData, from, to task.Ref) error {
	deps := depsOf(td.Tasks, from)
	if deps == nil {
		return tmerrors.TaskNotFound(from.String())
	}
	for i, dep := range *deps {
		if task.ResolveDep(td.Tasks, from, dep) == to {
			*deps = append((*deps)[:i], (*deps)[i+1:]...)
			return nil
		}
	}
	return tmerrors.InvalidDependency(from.String(), to.String(), "no such dependency")
}

// RemoveDependencyReferences drops every dependency on ref, including
// references to its subtasks when ref is a top-level task. It returns the
// number of references removed.
func RemoveDependencyReferences(tasks []task.Task, ref task.Ref) int {
	return task.RemoveReferences(tasks, ref)
}

func depsOf(tasks []task.Task, ref task.Ref) *[]task.Ref {
	t := task.FindTask(tasks, ref.ID)
	if t == nil {
		return nil
	}
	if !ref.IsSubtask() {
		return &t.Dependencies
	}
	s := t.FindSubtask(ref.Sub)
	if s == nil {
		return nil
	}
	return &s.Dependencies
}

// ValidateAll validates every tag of doc concurrently and returns the issues
// per tag. Tags without issues are omitted.
func ValidateAll(ctx context.Context, doc *task.Document) (map[string][]Issue, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	var mu sync.Mutex
	result := make(map[string][]Issue)
	for _, tag := range doc.Tags() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			td, err := doc.Get(tag)
			if err != nil {
				return err
			}
			issues := Validate(td.Tasks)
			if len(issues) == 0 {
				return nil
			}
			mu.Lock()
			result[tag] = issues
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
