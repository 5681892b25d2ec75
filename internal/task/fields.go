package task

import (
	"fmt"
	"strings"
)

// FieldProblem is a task or subtask field that does not hold a legal value.
// Files written by tm never contain one; hand-edited files may.
type FieldProblem struct {
	Ref    Ref    `json:"ref"`
	Field  string `json:"field"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (p FieldProblem) String() string {
	if p.Value != "" {
		return fmt.Sprintf("%s %s: %s (%q)", p.Ref, p.Field, p.Reason, p.Value)
	}
	return fmt.Sprintf("%s %s: %s", p.Ref, p.Field, p.Reason)
}

// CheckFields reports illegal ids, empty titles and unknown statuses or
// priorities across tasks and their subtasks. Dependencies are not looked at.
func CheckFields(tasks []Task) []FieldProblem {
	var out []FieldProblem
	taskIDs := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		ref := TaskRef(t.ID)
		switch {
		case t.ID <= 0:
			out = append(out, FieldProblem{Ref: ref, Field: "id", Value: fmt.Sprint(t.ID), Reason: "not a positive integer"})
		case taskIDs[t.ID]:
			out = append(out, FieldProblem{Ref: ref, Field: "id", Reason: "used by more than one task"})
		}
		taskIDs[t.ID] = true
		if strings.TrimSpace(t.Title) == "" {
			out = append(out, FieldProblem{Ref: ref, Field: "title", Reason: "empty"})
		}
		out = appendEnumProblems(out, ref, t.Status, t.Priority)

		subIDs := make(map[int]bool, len(t.Subtasks))
		for _, s := range t.Subtasks {
			sref := SubtaskRef(t.ID, s.ID)
			switch {
			case s.ID <= 0:
				out = append(out, FieldProblem{Ref: sref, Field: "id", Value: fmt.Sprint(s.ID), Reason: "not a positive integer"})
			case subIDs[s.ID]:
				out = append(out, FieldProblem{Ref: sref, Field: "id", Reason: "used by more than one subtask"})
			}
			subIDs[s.ID] = true
			out = appendEnumProblems(out, sref, s.Status, s.Priority)
		}
	}
	return out
}

func appendEnumProblems(out []FieldProblem, ref Ref, status Status, priority Priority) []FieldProblem {
	if status != "" && !IsValidStatus(status) {
		out = append(out, FieldProblem{Ref: ref, Field: "status", Value: string(status), Reason: "unknown status"})
	}
	if priority != "" && !IsValidPriority(priority) {
		out = append(out, FieldProblem{Ref: ref, Field: "priority", Value: string(priority), Reason: "unknown priority"})
	}
	return out
}
