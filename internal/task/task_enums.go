package task

// Status represents the lifecycle state of a task or subtask.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusReview     Status = "review"
	StatusDeferred   Status = "deferred"
	StatusCancelled  Status = "cancelled"
)

// ValidStatuses returns all valid status values.
func ValidStatuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusDone, StatusReview, StatusDeferred, StatusCancelled}
}

// IsValidStatus returns true if the status is a valid status value.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusReview, StatusDeferred, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsComplete returns true for statuses that satisfy a dependency
// (done and cancelled).
func (s Status) IsComplete() bool {
	return s == StatusDone || s == StatusCancelled
}

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// DefaultPriority is used when a task has no priority set.
const DefaultPriority = PriorityMedium

// ValidPriorities returns all valid priority values.
func ValidPriorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

// IsValidPriority returns true if the priority is a valid priority value.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// PriorityOrder returns the sort order for a priority (lower = more urgent).
// Empty priorities sort as medium.
func PriorityOrder(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}
