package memory

import (
	"context"
	"sort"
	"sync"

	domain "todo/backend/internal/domain/task"
)

// TaskRepository keeps tasks in process memory.
type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

var _ domain.Repository = (*TaskRepository)(nil)

// NewTaskRepository constructs an empty repository.
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{tasks: make(map[string]*domain.Task)}
}

// Create inserts a new task.
func (r *TaskRepository) Create(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *task
	r.tasks[task.ID] = &stored
	return nil
}

// GetByID fetches a task of userID.
func (r *TaskRepository) GetByID(_ context.Context, userID, id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.tasks[id]
	if !ok || stored.UserID != userID {
		return nil, domain.ErrNotFound
	}
	t := *stored
	return &t, nil
}

// ListByUser returns the tasks of userID, newest first.
func (r *TaskRepository) ListByUser(_ context.Context, userID string) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Task
	for _, stored := range r.tasks {
		if stored.UserID != userID {
			continue
		}
		t := *stored
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update writes task changes.
func (r *TaskRepository) Update(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tasks[task.ID]
	if !ok || stored.UserID != task.UserID {
		return domain.ErrNotFound
	}
	updated := *task
	r.tasks[task.ID] = &updated
	return nil
}

// Delete removes a task of userID.
func (r *TaskRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tasks[id]
	if !ok || stored.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}
