// Package session holds the client's authentication state: the current
// token, mirrored into a durable Store so it survives restarts.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptyToken is returned by Login when given no token.
var ErrEmptyToken = errors.New("empty token")

// User is what the client can tell about the logged-in user from the token
// alone. It is unverified and only fit for display.
type User struct {
	ID        string
	Email     string
	ExpiresAt time.Time
}

// State is the client auth state. Build one per process and inject it.
type State struct {
	mu    sync.RWMutex
	store Store
	token string
}

// NewState restores a previously persisted token from store.
func NewState(ctx context.Context, store Store) (*State, error) {
	token, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &State{store: store, token: strings.TrimSpace(token)}, nil
}

// Login records token in memory and in the durable store.
func (s *State) Login(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(ctx, token); err != nil {
		return err
	}
	s.token = token
	return nil
}

// Logout forgets the token. The in-memory copy is dropped even when the
// store fails, so the process never keeps using a token it meant to drop.
func (s *State) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return s.store.Clear(ctx)
}

func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *State) LoggedIn() bool {
	return s.Token() != ""
}

// CurrentUser decodes the token claims without checking the signature.
func (s *State) CurrentUser() (User, bool) {
	token := s.Token()
	if token == "" {
		return User{}, false
	}

	var claims struct {
		UserID string `json:"uid"`
		Email  string `json:"email"`
		jwt.RegisteredClaims
	}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return User{}, false
	}

	user := User{ID: claims.UserID, Email: claims.Email}
	if user.ID == "" {
		user.ID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		user.ExpiresAt = claims.ExpiresAt.Time
	}
	return user, user.ID != ""
}
