package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/taskmaster/internal/config"
	"github.com/geocoder89/taskmaster/internal/domain/task"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/geocoder89/taskmaster/internal/utils"
	"github.com/gin-gonic/gin"
)

type TaskStore interface {
	Create(ctx context.Context, t task.Task) (task.Task, error)
	List(ctx context.Context, filter task.ListTasksFilter) ([]task.Task, int, error)
	GetByID(ctx context.Context, id string) (task.Task, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (task.Task, error)
	Delete(ctx context.Context, id string) error
}

type TasksHandler struct {
	repo TaskStore
}

func NewTasksHandler(repo TaskStore) *TasksHandler {
	return &TasksHandler{repo: repo}
}

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

func (h *TasksHandler) CreateTask(ctx *gin.Context) {
	var req task.CreateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if strings.TrimSpace(req.Description) == "" {
		RespondBadRequest(ctx, "Invalid request body", gin.H{
			"fields": []FieldError{{Field: "description", Rule: "required", Message: "is required"}},
		})
		return
	}

	var dueDate *time.Time

	if req.DueDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.DueDate)

		if err != nil {
			RespondBadRequest(ctx, "Invalid request body", gin.H{
				"fields": []FieldError{{Field: "dueDate", Rule: "datetime", Message: "must be a valid RFC 3339 date"}},
			})
			return
		}

		dueDate = &parsed
	}

	// owner always comes from the authenticated identity, never the body
	callerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	created, err := h.repo.Create(cctx, task.NewFromCreateRequest(req, callerID, dueDate))

	if err != nil {
		RespondInternal(ctx, "Could not create task")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// ListTasks translates status/sortBy/page/limit query parameters into an
// owner-scoped store query.
//
// Contract choices (both came up during review): an invalid status value is
// silently ignored rather than rejected, and an unrecognized sortBy field
// falls back to createdAt descending.
func (h *TasksHandler) ListTasks(ctx *gin.Context) {
	callerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	page := utils.ParsePositiveInt(ctx.Query("page"), defaultPage)

	// an unbounded limit would size the page allocation off raw caller input
	limit := utils.ParsePositiveInt(ctx.Query("limit"), defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}

	filter := buildListFilter(callerID, ctx.Query("status"), ctx.Query("sortBy"))
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	tasks, total, err := h.repo.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	totalPages := (total + limit - 1) / limit

	// out-of-range pages echo the requested page; totalPages stays honest
	ctx.JSON(http.StatusOK, gin.H{
		"tasks":       tasks,
		"currentPage": page,
		"totalPages":  totalPages,
		"totalTasks":  total,
		"limit":       limit,
	})
}

func buildListFilter(ownerID, status, sortBy string) task.ListTasksFilter {
	filter := task.ListTasksFilter{
		OwnerID: ownerID,
		// default sort: newest first
		SortColumn: "created_at",
		SortDesc:   true,
	}

	if task.IsValidStatus(status) {
		filter.Status = &status
	}

	if sortBy != "" {
		field, direction, _ := strings.Cut(sortBy, ":")

		if col, ok := task.SortColumn(field); ok {
			filter.SortColumn = col
			filter.SortDesc = direction == "desc"
		}
	}

	return filter
}

func (h *TasksHandler) GetTaskByID(ctx *gin.Context) {
	t, ok := h.loadOwnedTask(ctx)

	if !ok {
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, t)
}

func (h *TasksHandler) UpdateTask(ctx *gin.Context) {
	var req task.UpdateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	fields := map[string]interface{}{}

	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)

		if desc == "" {
			RespondBadRequest(ctx, "Invalid request body", gin.H{
				"fields": []FieldError{{Field: "description", Rule: "required", Message: "is required"}},
			})
			return
		}

		fields["description"] = desc
	}

	if req.Status != nil {
		fields["status"] = *req.Status
	}

	if req.DueDate.Present {
		// nil clears the due date
		fields["due_date"] = req.DueDate.Value
	}

	t, ok := h.loadOwnedTask(ctx)

	if !ok {
		return
	}

	if len(fields) == 0 {
		ctx.JSON(http.StatusOK, t)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	updated, err := h.repo.Update(cctx, t.ID, fields)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			// deleted between the ownership check and the write
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not update task")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *TasksHandler) DeleteTask(ctx *gin.Context) {
	t, ok := h.loadOwnedTask(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	err := h.repo.Delete(cctx, t.ID)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not delete task")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Task removed successfully"})
}

// loadOwnedTask runs the shared ownership protocol for the id-addressed
// operations: a malformed id answers exactly like a missing task, and a
// task owned by someone else is forbidden, not hidden. On failure the
// response has already been written.
func (h *TasksHandler) loadOwnedTask(ctx *gin.Context) (task.Task, bool) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Task not found")
		return task.Task{}, false
	}

	callerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || callerID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return task.Task{}, false
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	t, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return task.Task{}, false
		}

		RespondInternal(ctx, "Could not fetch task")
		return task.Task{}, false
	}

	if t.OwnerID != callerID {
		RespondForbidden(ctx, "User not authorized")
		return task.Task{}, false
	}

	return t, true
}
