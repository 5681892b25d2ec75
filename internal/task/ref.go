package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	tmerrors "github.com/randalmurphal/taskmaster/internal/errors"
)

// Ref is a dependency reference: either a top-level task id or a
// subtask-qualified id "parent.sub".
//
// Top-level refs have Sub == 0 and encode as a JSON number. Subtask refs
// encode as a JSON string.
type Ref struct {
	ID  int
	Sub int
}

// TaskRef returns a reference to a top-level task.
func TaskRef(id int) Ref {
	return Ref{ID: id}
}

// SubtaskRef returns a reference to subtask sub of task parent.
func SubtaskRef(parent, sub int) Ref {
	return Ref{ID: parent, Sub: sub}
}

// IsSubtask reports whether the ref names a subtask.
func (r Ref) IsSubtask() bool {
	return r.Sub != 0
}

// Parent returns the top-level task the ref lives under.
func (r Ref) Parent() Ref {
	return Ref{ID: r.ID}
}

// IsZero reports whether the ref is unset.
func (r Ref) IsZero() bool {
	return r.ID == 0 && r.Sub == 0
}

// String formats the ref as "7" or "7.2".
func (r Ref) String() string {
	if r.Sub != 0 {
		return fmt.Sprintf("%d.%d", r.ID, r.Sub)
	}
	return strconv.Itoa(r.ID)
}

// ParseRef parses "7" or "7.2". Malformed subtask forms return an
// InvalidSubtaskIdFormat error.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, tmerrors.InvalidSubtaskID(s)
	}
	parent, sub, dotted := strings.Cut(s, ".")
	id, err := strconv.Atoi(parent)
	if err != nil || id <= 0 {
		if dotted {
			return Ref{}, tmerrors.InvalidSubtaskID(s)
		}
		return Ref{}, tmerrors.InvalidTaskField("task id", s)
	}
	if !dotted {
		return Ref{ID: id}, nil
	}
	subID, err := strconv.Atoi(sub)
	if err != nil || subID <= 0 {
		return Ref{}, tmerrors.InvalidSubtaskID(s)
	}
	return Ref{ID: id, Sub: subID}, nil
}

// ParseSubtaskRef parses a ref that must be subtask-qualified.
func ParseSubtaskRef(s string) (Ref, error) {
	ref, err := ParseRef(s)
	if err != nil {
		return Ref{}, err
	}
	if !ref.IsSubtask() {
		return Ref{}, tmerrors.InvalidSubtaskID(s)
	}
	return ref, nil
}

// MarshalJSON encodes top-level refs as numbers and subtask refs as strings.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Sub != 0 {
		return json.Marshal(r.String())
	}
	return []byte(strconv.Itoa(r.ID)), nil
}

// UnmarshalJSON accepts numbers, numeric strings and "parent.sub" strings.
// Non-positive ids are kept so dangling legacy data still loads. Anything
// else (null, "abc", objects) decodes to the zero Ref, which names no task,
// so the dependency validator drops it as dangling.
func (r *Ref) UnmarshalJSON(data []byte) error {
	*r = Ref{}
	data = bytes.TrimSpace(data)
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil
		}
		// 3.2 written as a bare number is still a subtask reference.
		raw = n.String()
	}
	if ref, ok := parseLenient(raw); ok {
		*r = ref
	}
	return nil
}

func parseLenient(s string) (Ref, bool) {
	parent, sub, dotted := strings.Cut(strings.TrimSpace(s), ".")
	id, err := strconv.Atoi(parent)
	if err != nil {
		return Ref{}, false
	}
	if !dotted {
		return Ref{ID: id}, true
	}
	subID, err := strconv.Atoi(sub)
	if err != nil {
		return Ref{}, false
	}
	return Ref{ID: id, Sub: subID}, true
}
