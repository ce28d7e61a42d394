package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "todo/backend/internal/domain/auth"

	"github.com/google/uuid"
)

// Service coordinates authentication workflows between domain and infrastructure.
type Service struct {
	users   domain.UserRepository
	tokens  TokenManager
	hasher  PasswordHasher
	nowFunc func() time.Time

	// dummyHash is compared against when the email is unknown.
	dummyHash string
}

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// NewService constructs an auth service.
func NewService(users domain.UserRepository, tokens TokenManager, hasher PasswordHasher) *Service {
	s := &Service{
		users:   users,
		tokens:  tokens,
		hasher:  hasher,
		nowFunc: time.Now,
	}
	if h, err := hasher.Hash("not-a-real-password"); err == nil {
		s.dummyHash = h
	}
	return s
}

// Register creates a new user and returns the persisted entity without a password hash.
func (s *Service) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, maxPasswordBytes)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: lookup user: %v", domain.ErrServiceUnavailable, err)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", domain.ErrServiceUnavailable, err)
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: create user: %v", domain.ErrServiceUnavailable, err)
	}

	return sanitizeUser(user), nil
}

// IssueToken validates credentials and mints a session token. Unknown emails
// and wrong passwords both yield ErrInvalidCredentials after one hash
// comparison, so neither the error nor the latency tells them apart.
func (s *Service) IssueToken(ctx context.Context, creds domain.Credentials) (domain.Token, *domain.User, error) {
	email := normalizeEmail(creds.Email)
	password := strings.TrimSpace(creds.Password)
	if email == "" || password == "" {
		return domain.Token{}, nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = s.hasher.Compare(s.dummyHash, password)
			return domain.Token{}, nil, domain.ErrInvalidCredentials
		}
		return domain.Token{}, nil, fmt.Errorf("%w: lookup user: %v", domain.ErrServiceUnavailable, err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return domain.Token{}, nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return domain.Token{}, nil, fmt.Errorf("%w: sign token: %v", domain.ErrServiceUnavailable, err)
	}

	return token, sanitizeUser(user), nil
}

// Authenticate verifies a bearer token. Every failure, whatever its cause,
// is reported as ErrUnauthenticated.
func (s *Service) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	identity, err := s.tokens.Validate(token)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return identity, nil
}

// RenewToken mints a fresh token for an identity the guard already
// verified. Users deleted since the token was issued are rejected.
func (s *Service) RenewToken(ctx context.Context, identity domain.Identity) (domain.Token, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Token{}, domain.ErrUnauthenticated
		}
		return domain.Token{}, fmt.Errorf("%w: lookup user: %v", domain.ErrServiceUnavailable, err)
	}

	renewed, err := s.tokens.Generate(user)
	if err != nil {
		return domain.Token{}, fmt.Errorf("%w: sign token: %v", domain.ErrServiceUnavailable, err)
	}
	return renewed, nil
}

// CurrentUser loads the profile behind an authenticated identity.
func (s *Service) CurrentUser(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: lookup user: %v", domain.ErrServiceUnavailable, err)
	}
	return sanitizeUser(user), nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	copy := *u
	copy.PasswordHash = ""
	return &copy
}
