package domain

import "fmt"

// TaskStatus is the progress of a task for one enrollment, derived from the
// presence and approval of a matching TaskCompletion.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "notStarted"
	StatusPending    TaskStatus = "pending"
	StatusCompleted  TaskStatus = "completed"
)

// Statuses lists every status in board order.
var Statuses = []TaskStatus{StatusNotStarted, StatusPending, StatusCompleted}

// StatusOf derives the status from the completion matching a task and
// enrollment, or nil when there is none.
func StatusOf(c *TaskCompletion) TaskStatus {
	switch {
	case c == nil:
		return StatusNotStarted
	case c.IsActive:
		return StatusCompleted
	default:
		return StatusPending
	}
}

// ParseTaskStatus accepts the wire names and a few CLI-friendly aliases.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch s {
	case "notStarted", "not-started", "todo":
		return StatusNotStarted, nil
	case "pending":
		return StatusPending, nil
	case "completed", "done":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}
