package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "todo/backend/internal/domain/auth"

	goredis "github.com/redis/go-redis/v9"
)

// UserRepository stores users as JSON documents in Redis.
type UserRepository struct {
	client *goredis.Client
}

var _ domain.UserRepository = (*UserRepository)(nil)

// NewUserRepository constructs a repository.
func NewUserRepository(client *goredis.Client) *UserRepository {
	return &UserRepository{client: client}
}

// storedUser keeps the password hash, which domain.User hides from JSON.
type storedUser struct {
	domain.User
	PasswordHash string `json:"passwordHash"`
}

// Create inserts a new user record. The email index is claimed first so
// concurrent registrations of one address cannot both succeed.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	claimed, err := r.client.SetNX(ctx, userEmailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("claim email: %w", err)
	}
	if !claimed {
		return domain.ErrEmailExists
	}

	payload, err := json.Marshal(storedUser{User: *user, PasswordHash: user.PasswordHash})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, userKey(user.ID), payload, 0).Err(); err != nil {
		r.client.Del(ctx, userEmailKey(user.Email))
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, err := r.client.Get(ctx, userEmailKey(email)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	raw, err := r.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return decodeUser(raw)
}

func decodeUser(raw []byte) (*domain.User, error) {
	var s storedUser
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	u := s.User
	u.PasswordHash = s.PasswordHash
	return &u, nil
}
