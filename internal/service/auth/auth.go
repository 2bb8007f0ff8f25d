package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	domainuser "github.com/alanyang/cloudtask/internal/domain/user"
	"github.com/alanyang/cloudtask/internal/port/session"
	portuser "github.com/alanyang/cloudtask/internal/port/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalid            = errors.New("invalid registration")
	ErrUnauthorized       = errors.New("missing or expired session")
)

// SessionTTL bounds how long a bearer token stays valid without re-login.
const SessionTTL = 24 * time.Hour

type Service struct {
	users    portuser.Store
	sessions session.Cache
}

func NewService(users portuser.Store, sessions session.Cache) *Service {
	return &Service{users: users, sessions: sessions}
}

func (s *Service) Register(ctx context.Context, email, password, name string) (domainuser.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domainuser.User{}, fmt.Errorf("%w: email", ErrInvalid)
	}
	if len(password) < 8 {
		return domainuser.User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalid)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domainuser.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.Create(ctx, domainuser.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		CreatedAt:    time.Now().UTC(),
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, portuser.ErrDuplicate) {
			return domainuser.User{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
		}
		return domainuser.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// Login verifies credentials and mints an opaque bearer token. A deliberately
// indistinct error covers both unknown-email and wrong-password so callers
// cannot probe for registered addresses.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, portuser.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := s.sessions.Set(ctx, token, []byte(u.ID.String()), SessionTTL); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Verify resolves a bearer token to the user id it was minted for.
func (s *Service) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrUnauthorized
	}

	raw, err := s.sessions.Get(ctx, token)
	if err != nil {
		return uuid.Nil, ErrUnauthorized
	}

	id, err := uuid.Parse(string(raw))
	if err != nil {
		return uuid.Nil, ErrUnauthorized
	}
	return id, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Invalidate(ctx, token)
}
