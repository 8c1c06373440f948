package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateTaskRequest, ownerID string, dueDate *time.Time) Task {
	now := time.Now().UTC()

	status := req.Status
	if status == "" {
		status = StatusPending
	}

	return Task{
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(req.Description),
		Status:      status,
		DueDate:     dueDate,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
