package task

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a task could not be located for the owner.
	ErrNotFound = errors.New("task not found")
	// ErrTitleRequired signals an empty task title.
	ErrTitleRequired = errors.New("title is required")
)

// Task is a single to-do item owned by one user.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Update applies optional field updates to the task.
func (t *Task) Update(title *string, completed *bool, now time.Time) {
	if title != nil {
		t.Title = *title
	}
	if completed != nil {
		t.Completed = *completed
	}
	t.UpdatedAt = now
}
