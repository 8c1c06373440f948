package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/taskmaster/internal/domain/task"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *TasksRepo) Create(ctx context.Context, t task.Task) (task.Task, error) {
	err := r.observe("tasks.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tasks(id, description, status, due_date, owner_id, created_at, updated_at)
			 VALUES($1,$2,$3,$4,$5,$6,$7)`,
			t.ID, t.Description, t.Status, t.DueDate, t.OwnerID, t.CreatedAt, t.UpdatedAt)
		return err
	})

	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

// List returns one page of the owner's tasks along with the total count of
// rows matching the filter, independent of limit/offset.
func (r *TasksRepo) List(ctx context.Context, filter task.ListTasksFilter) (output []task.Task, total int, err error) {
	err = r.observe("tasks.list", func() error {
		output, total, err = r.list(ctx, filter)
		return err
	})
	return output, total, err
}

func (r *TasksRepo) list(ctx context.Context, filter task.ListTasksFilter) ([]task.Task, int, error) {
	baseQuery :=
		`SELECT id,
		description,
		status,
		due_date,
		owner_id,
		created_at,
		updated_at,
		COUNT(*) OVER() AS TOTAL
	FROM tasks
	`

	// owner is always the first condition; never optional
	conds := []string{"owner_id = $1"}
	args := []interface{}{filter.OwnerID}

	argsPosition := 2

	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
		args = append(args, *filter.Status)
		argsPosition++
	}

	query := baseQuery + " WHERE " + strings.Join(conds, " AND ")

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	// SortColumn comes from the allow list in the task package, never from
	// raw caller input; id breaks ties for stable pagination.
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d",
		filter.SortColumn, direction, argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	output := make([]task.Task, 0, min(filter.Limit, 100))
	total := 0

	for rows.Next() {
		var t task.Task
		var n int

		err = rows.Scan(&t.ID, &t.Description, &t.Status, &t.DueDate, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt, &n)

		if err != nil {
			return nil, 0, err
		}

		total = n
		output = append(output, t)
	}

	err = rows.Err()

	if err != nil {
		return nil, 0, err
	}

	// pages past the end return no rows, so the window count is lost
	if len(output) == 0 {
		if err := r.pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM tasks WHERE "+strings.Join(conds, " AND "),
			args[:argsPosition-1]...,
		).Scan(&total); err != nil {
			return nil, 0, err
		}
	}

	return output, total, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id string) (task.Task, error) {
	var t task.Task

	err := r.observe("tasks.get", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, description, status, due_date, owner_id, created_at, updated_at
			 FROM tasks WHERE id = $1`, id).
			Scan(&t.ID, &t.Description, &t.Status, &t.DueDate, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, err
	}

	return t, nil
}

// Update applies only the supplied fields. Owner and created_at are never
// part of the SET clause; updated_at is always refreshed.
func (r *TasksRepo) Update(ctx context.Context, id string, fields map[string]interface{}) (task.Task, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}

	argsPosition := 2

	for _, col := range []string{"description", "status", "due_date"} {
		v, ok := fields[col]
		if !ok {
			continue
		}

		sets = append(sets, fmt.Sprintf("%s = $%d", col, argsPosition))
		args = append(args, v)
		argsPosition++
	}

	query := fmt.Sprintf(
		`UPDATE tasks
			SET %s
		WHERE id = $1
		RETURNING id, description, status, due_date, owner_id, created_at, updated_at`,
		strings.Join(sets, ", "),
	)

	var t task.Task

	err := r.observe("tasks.update", func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(
			&t.ID,
			&t.Description,
			&t.Status,
			&t.DueDate,
			&t.OwnerID,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
	})

	if err != nil {
		// if there are no rows matching the id
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		// if it is any other type of error
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.observe("tasks.delete", func() error {
		tag, err := r.pool.Exec(ctx, `
			DELETE from tasks WHERE id = $1
		`, id)

		if err != nil {
			return err
		}

		affected = tag.RowsAffected()
		return nil
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return task.ErrNotFound
	}

	return nil
}
