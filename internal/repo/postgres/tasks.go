package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhub/taskhub/internal/domain/task"
)

const taskColumns = `id, title, description, status, user_id, created_at, updated_at`

// TasksRepo scopes every query by the owning user in SQL, so a task that
// exists but belongs to someone else is indistinguishable from one that does
// not exist at all.
type TasksRepo struct {
	pool *pgxpool.Pool
	obs  DBObserver
}

func NewTasksRepo(pool *pgxpool.Pool, obs DBObserver) *TasksRepo {
	return &TasksRepo{pool: pool, obs: obs}
}

func (r *TasksRepo) Create(ctx context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error) {
	now := time.Now().UTC()

	t := task.Task{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Status:      task.StatusPending,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.Status != nil {
		t.Status = *req.Status
	}

	err := observe(r.obs, "tasks.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tasks (id, title, description, status, user_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			t.ID, t.Title, t.Description, t.Status, t.UserID, t.CreatedAt, t.UpdatedAt,
		)

		return err
	})

	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, ownerID, id string) (task.Task, error) {
	var t task.Task

	err := observe(r.obs, "tasks.get", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`,
			id, ownerID,
		).Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) List(ctx context.Context, ownerID string, filter task.ListTasksFilter) ([]task.Task, int, error) {
	conds := []string{"user_id = $1"}
	args := []interface{}{ownerID}

	argsPosition := 2

	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("status = $%d", argsPosition))
		args = append(args, *filter.Status)
		argsPosition++
	}

	if filter.Search != "" {
		conds = append(conds, fmt.Sprintf("title ILIKE '%%' || $%d || '%%'", argsPosition))
		args = append(args, filter.Search)
		argsPosition++
	}

	where := " WHERE " + strings.Join(conds, " AND ")

	// Count and page come from one query so both reflect the same snapshot.
	query := `SELECT ` + taskColumns + `, COUNT(*) OVER() AS total FROM tasks` +
		where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	output := make([]task.Task, 0, filter.Limit)
	total := 0

	err := observe(r.obs, "tasks.list", func() error {
		rows, err := r.pool.Query(ctx, query, append(args, filter.Limit, filter.Offset())...)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var t task.Task

			err = rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.UserID, &t.CreatedAt, &t.UpdatedAt, &total)

			if err != nil {
				return err
			}

			output = append(output, t)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	// A page past the end returns zero rows, which also drops the window
	// count; fall back to a plain COUNT with the same predicate.
	if len(output) == 0 {
		err = observe(r.obs, "tasks.count", func() error {
			return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total)
		})

		if err != nil {
			return nil, 0, err
		}
	}

	return output, total, nil
}

func (r *TasksRepo) Update(ctx context.Context, ownerID, id string, req task.UpdateTaskRequest) (task.Task, error) {
	var t task.Task

	err := observe(r.obs, "tasks.update", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE tasks
			 SET title       = COALESCE($3, title),
			     description = COALESCE($4, description),
			     status      = COALESCE($5, status),
			     updated_at  = NOW()
			 WHERE id = $1 AND user_id = $2
			 RETURNING `+taskColumns,
			id, ownerID, req.Title, req.Description, req.Status,
		).Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, ownerID, id string) error {
	var tag pgconn.CommandTag

	err := observe(r.obs, "tasks.delete", func() error {
		var err error

		tag, err = r.pool.Exec(ctx,
			`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
			id, ownerID,
		)

		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}

	return nil
}
