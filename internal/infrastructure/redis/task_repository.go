package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "todo/backend/internal/domain/task"

	goredis "github.com/redis/go-redis/v9"
)

// TaskRepository stores tasks as JSON documents with a per-user sorted
// index scored by creation time.
type TaskRepository struct {
	client *goredis.Client
}

var _ domain.Repository = (*TaskRepository)(nil)

// NewTaskRepository constructs a repository.
func NewTaskRepository(client *goredis.Client) *TaskRepository {
	return &TaskRepository{client: client}
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, taskKey(task.ID), payload, 0)
		pipe.ZAdd(ctx, userTasksKey(task.UserID), goredis.Z{
			Score:  float64(task.CreatedAt.UnixNano()),
			Member: task.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("store task: %w", err)
	}
	return nil
}

// GetByID fetches a task owned by userID.
func (r *TaskRepository) GetByID(ctx context.Context, userID, id string) (*domain.Task, error) {
	raw, err := r.client.Get(ctx, taskKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	task, err := decodeTask(raw)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

// ListByUser returns the tasks of userID, newest first.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Task, error) {
	ids, err := r.client.ZRevRange(ctx, userTasksKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = taskKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	tasks := make([]*domain.Task, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// index entry outlived its document
			continue
		}
		task, err := decodeTask([]byte(s))
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Update writes task changes.
func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	if _, err := r.GetByID(ctx, task.UserID, task.ID); err != nil {
		return err
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, taskKey(task.ID), payload, 0).Err(); err != nil {
		return fmt.Errorf("store task: %w", err)
	}
	return nil
}

// Delete removes a task owned by userID.
func (r *TaskRepository) Delete(ctx context.Context, userID, id string) error {
	if _, err := r.GetByID(ctx, userID, id); err != nil {
		return err
	}
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, taskKey(id))
		pipe.ZRem(ctx, userTasksKey(userID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func decodeTask(raw []byte) (*domain.Task, error) {
	var t domain.Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}
