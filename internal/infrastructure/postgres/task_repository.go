package postgres

import (
	"context"
	"errors"

	domain "todo/backend/internal/domain/task"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepository persists tasks in PostgreSQL.
type TaskRepository struct {
	pool *pgxpool.Pool
}

var _ domain.Repository = (*TaskRepository)(nil)

// NewTaskRepository constructs a repository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
INSERT INTO tasks (id, user_id, title, completed, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Completed,
		task.CreatedAt,
		task.UpdatedAt,
	)
	return err
}

// GetByID fetches a task owned by userID.
func (r *TaskRepository) GetByID(ctx context.Context, userID, id string) (*domain.Task, error) {
	const query = `
SELECT id, user_id, title, completed, created_at, updated_at
FROM tasks WHERE id = $1 AND user_id = $2
`
	task, err := scanTask(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListByUser returns the tasks of userID, newest first.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Task, error) {
	const query = `
SELECT id, user_id, title, completed, created_at, updated_at
FROM tasks
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Update writes task changes.
func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	const query = `
UPDATE tasks
SET title = $3,
    completed = $4,
    updated_at = $5
WHERE id = $1 AND user_id = $2
`
	tag, err := r.pool.Exec(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Completed,
		task.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a task owned by userID.
func (r *TaskRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Completed,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
