package domain

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// ValidTaskStatus reports whether s is a known status. Transitions are direct
// assignments; there is no state machine beyond the allowed values.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

type Task struct {
	ID          string
	SiteID      string
	Title       string
	Description string
	AssigneeID  string // user ID, may be empty for unassigned tasks
	PhotoURL    string // completion photo uploaded by the worker
	Status      TaskStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Progress is the per-site aggregate the progress screens render.
type Progress struct {
	SiteID     string
	Pending    int
	InProgress int
	Completed  int
	Total      int
	Percent    float64 // completed / total * 100, 0 when the site has no tasks
}
