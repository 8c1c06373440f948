package task

import (
	"errors"
	"time"
)

// Task statuses. Transitions between them are unconstrained.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	OwnerID     string     `json:"owner"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

var (
	ErrNotFound = errors.New("task not found")
	ErrNotOwner = errors.New("task owned by another user")
)

type CreateTaskRequest struct {
	Description string `json:"description" binding:"required"`
	Status      string `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
	DueDate     string `json:"dueDate" binding:"omitempty"`
}

// All fields are optional; absent fields are untouched. A present-but-null
// (or empty) dueDate clears the stored due date. Owner and timestamps are
// not updatable: unknown body fields are never bound.
type UpdateTaskRequest struct {
	Description *string      `json:"description"`
	Status      *string      `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
	DueDate     OptionalDate `json:"dueDate"`
}

// sort fields honored by the list endpoint; anything else is ignored
var allowedSortFields = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"description": "description",
	"status":      "status",
	"dueDate":     "due_date",
}

// SortColumn maps an API sort field to its column, reporting whether the
// field is in the allow list.
func SortColumn(field string) (string, bool) {
	col, ok := allowedSortFields[field]
	return col, ok
}

// with pointers if optional, it will be nil
type ListTasksFilter struct {
	OwnerID string
	Status  *string

	SortColumn string
	SortDesc   bool

	Limit  int
	Offset int
}
