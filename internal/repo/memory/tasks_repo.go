package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/domain/task"
)

// TasksRepo mirrors the postgres tasks repo, including its ownership scoping:
// another user's task reads as not found.
type TasksRepo struct {
	mu    sync.RWMutex
	items map[string]task.Task
	seq   int64
}

func NewTasksRepo() *TasksRepo {
	return &TasksRepo{
		items: make(map[string]task.Task),
	}
}

func (r *TasksRepo) Create(_ context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++

	// seq breaks created_at ties so list order stays stable, the way the
	// id tiebreak does in SQL.
	now := time.Now().UTC().Add(time.Duration(r.seq) * time.Nanosecond)

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

	r.items[t.ID] = t

	return t, nil
}

func (r *TasksRepo) GetByID(_ context.Context, ownerID, id string) (task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[id]

	if !ok || t.UserID != ownerID {
		return task.Task{}, task.ErrNotFound
	}

	return t, nil
}

func (r *TasksRepo) List(_ context.Context, ownerID string, filter task.ListTasksFilter) ([]task.Task, int, error) {
	r.mu.RLock()

	matched := make([]task.Task, 0)

	for _, t := range r.items {
		if t.UserID != ownerID {
			continue
		}

		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}

		if filter.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(filter.Search)) {
			continue
		}

		matched = append(matched, t)
	}

	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}

		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := filter.Offset()

	if start >= total {
		return []task.Task{}, total, nil
	}

	end := start + filter.Limit

	if end > total {
		end = total
	}

	return matched[start:end], total, nil
}

func (r *TasksRepo) Update(_ context.Context, ownerID, id string, req task.UpdateTaskRequest) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]

	if !ok || t.UserID != ownerID {
		return task.Task{}, task.ErrNotFound
	}

	if req.Title != nil {
		t.Title = *req.Title
	}

	if req.Description != nil {
		v := *req.Description
		t.Description = &v
	}

	if req.Status != nil {
		t.Status = *req.Status
	}

	t.UpdatedAt = time.Now().UTC()
	r.items[id] = t

	return t, nil
}

func (r *TasksRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]

	if !ok || t.UserID != ownerID {
		return task.ErrNotFound
	}

	delete(r.items, id)

	return nil
}
