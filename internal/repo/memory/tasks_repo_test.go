package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/taskhub/taskhub/internal/domain/task"
)

func strPtr(s string) *string { return &s }

func statusPtr(s task.Status) *task.Status { return &s }

func TestTasksRepoOwnershipScoping(t *testing.T) {
	repo := NewTasksRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, "owner-a", task.CreateTaskRequest{Title: "mine"})

	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Another user's task behaves exactly like a missing one.
	if _, err := repo.GetByID(ctx, "owner-b", created.ID); err != task.ErrNotFound {
		t.Fatalf("GetByID as other owner: got %v, want ErrNotFound", err)
	}

	if _, err := repo.Update(ctx, "owner-b", created.ID, task.UpdateTaskRequest{Title: strPtr("stolen")}); err != task.ErrNotFound {
		t.Fatalf("Update as other owner: got %v, want ErrNotFound", err)
	}

	if err := repo.Delete(ctx, "owner-b", created.ID); err != task.ErrNotFound {
		t.Fatalf("Delete as other owner: got %v, want ErrNotFound", err)
	}

	if _, err := repo.GetByID(ctx, "owner-a", created.ID); err != nil {
		t.Fatalf("owner lost access to own task: %v", err)
	}
}

func TestTasksRepoListPagination(t *testing.T) {
	repo := NewTasksRepo()
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := repo.Create(ctx, "owner-a", task.CreateTaskRequest{Title: fmt.Sprintf("task %02d", i)})

		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	// noise from another owner must not leak into counts
	if _, err := repo.Create(ctx, "owner-b", task.CreateTaskRequest{Title: "not mine"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	items, total, err := repo.List(ctx, "owner-a", task.ListTasksFilter{Page: 2, Limit: 10})

	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if total != 15 {
		t.Fatalf("total = %d, want 15", total)
	}

	if len(items) != 5 {
		t.Fatalf("page 2 items = %d, want 5", len(items))
	}

	// past-the-end page is empty, not an error, and keeps the real total
	items, total, err = repo.List(ctx, "owner-a", task.ListTasksFilter{Page: 5, Limit: 10})

	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(items) != 0 || total != 15 {
		t.Fatalf("beyond-range page: items=%d total=%d, want 0/15", len(items), total)
	}
}

func TestTasksRepoListNewestFirst(t *testing.T) {
	repo := NewTasksRepo()
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		if _, err := repo.Create(ctx, "owner-a", task.CreateTaskRequest{Title: title}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	items, _, err := repo.List(ctx, "owner-a", task.ListTasksFilter{Page: 1, Limit: 10})

	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}

	if items[0].Title != "third" || items[2].Title != "first" {
		t.Fatalf("expected newest-first ordering, got %q..%q", items[0].Title, items[2].Title)
	}
}

func TestTasksRepoListFilters(t *testing.T) {
	repo := NewTasksRepo()
	ctx := context.Background()

	seed := []struct {
		title  string
		status task.Status
	}{
		{title: "Buy milk", status: task.StatusPending},
		{title: "Buy bread", status: task.StatusCompleted},
		{title: "Write report", status: task.StatusPending},
	}

	for _, s := range seed {
		_, err := repo.Create(ctx, "owner-a", task.CreateTaskRequest{Title: s.title, Status: statusPtr(s.status)})

		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	items, total, err := repo.List(ctx, "owner-a", task.ListTasksFilter{
		Page:   1,
		Limit:  10,
		Status: statusPtr(task.StatusPending),
	})

	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if total != 2 || len(items) != 2 {
		t.Fatalf("status filter: total=%d items=%d, want 2/2", total, len(items))
	}

	// substring match on title is case-insensitive
	items, total, err = repo.List(ctx, "owner-a", task.ListTasksFilter{
		Page:   1,
		Limit:  10,
		Search: "buy",
	})

	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if total != 2 || len(items) != 2 {
		t.Fatalf("search filter: total=%d items=%d, want 2/2", total, len(items))
	}

	items, total, err = repo.List(ctx, "owner-a", task.ListTasksFilter{
		Page:   1,
		Limit:  10,
		Status: statusPtr(task.StatusPending),
		Search: "buy",
	})

	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if total != 1 || len(items) != 1 || items[0].Title != "Buy milk" {
		t.Fatalf("combined filter: total=%d items=%d", total, len(items))
	}
}

func TestTasksRepoUpdatePartial(t *testing.T) {
	repo := NewTasksRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, "owner-a", task.CreateTaskRequest{
		Title:       "original",
		Description: strPtr("keep me"),
	})

	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := repo.Update(ctx, "owner-a", created.ID, task.UpdateTaskRequest{
		Status: statusPtr(task.StatusInProgress),
	})

	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.Title != "original" {
		t.Fatalf("title changed unexpectedly: %q", updated.Title)
	}

	if updated.Description == nil || *updated.Description != "keep me" {
		t.Fatalf("description changed unexpectedly: %v", updated.Description)
	}

	if updated.Status != task.StatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", updated.Status)
	}
}
