package task

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("task not found")

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// Toggled flips COMPLETED back to PENDING; every other status (including
// IN_PROGRESS) goes to COMPLETED. Note this makes toggle a non-involution
// for IN_PROGRESS: two toggles land on PENDING, not back on IN_PROGRESS.
func (s Status) Toggled() Status {
	switch s {
	case StatusCompleted:
		return StatusPending
	case StatusPending, StatusInProgress:
		return StatusCompleted
	default:
		return StatusCompleted
	}
}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      Status    `json:"status"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=120"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Status      *Status `json:"status" binding:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
}

// UpdateTaskRequest applies only the fields that were present in the body.
type UpdateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=120"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Status      *Status `json:"status" binding:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
}

func (r UpdateTaskRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Status == nil
}

type ListTasksFilter struct {
	Page   int     `form:"page,default=1" binding:"min=1"`
	Limit  int     `form:"limit,default=10" binding:"min=1,max=100"`
	Status *Status `form:"status" binding:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Search string  `form:"search" binding:"omitempty,max=120"`
}

func (f ListTasksFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

type ListResult struct {
	Items      []Task     `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewPagination computes totalPages = ceil(totalItems/limit), floored at 1 so
// an empty result still reports one (empty) page.
func NewPagination(page, limit, totalItems int) Pagination {
	totalPages := (totalItems + limit - 1) / limit

	if totalPages < 1 {
		totalPages = 1
	}

	return Pagination{
		Page:       page,
		Limit:      limit,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}
