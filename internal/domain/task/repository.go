package task

import "context"

// Repository defines persistence behaviours for tasks. Every lookup is
// scoped by owner; a task of another user is reported as ErrNotFound.
type Repository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, userID, id string) (*Task, error)
	ListByUser(ctx context.Context, userID string) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, userID, id string) error
}
