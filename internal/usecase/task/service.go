package task

import (
	"context"
	"strings"
	"time"

	domain "todo/backend/internal/domain/task"

	"github.com/google/uuid"
)

// Service encapsulates task use cases for a single owner at a time.
type Service struct {
	repo    domain.Repository
	nowFunc func() time.Time
}

// NewService constructs a task service.
func NewService(repo domain.Repository) *Service {
	return &Service{
		repo:    repo,
		nowFunc: time.Now,
	}
}

// CreateInput contains the payload required for task creation.
type CreateInput struct {
	Title string `json:"title"`
}

// UpdateInput encapsulates partial task updates.
type UpdateInput struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// Create stores a new task for userID.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domain.ErrTitleRequired
	}

	now := s.nowFunc().UTC()
	task := &domain.Task{
		ID:        uuid.NewString(),
		Title:     title,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// List retrieves the tasks of userID, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Task, error) {
	tasks, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	return tasks, nil
}

// Get fetches one task of userID.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, userID, id)
}

// Update applies partial updates to a task of userID.
func (s *Service) Update(ctx context.Context, userID, id string, input UpdateInput) (*domain.Task, error) {
	task, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, domain.ErrTitleRequired
		}
		input.Title = &title
	}

	task.Update(input.Title, input.Completed, s.nowFunc().UTC())

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task of userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrNotFound
	}
	return s.repo.Delete(ctx, userID, id)
}
