package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainuser "github.com/alanyang/cloudtask/internal/domain/user"
	portuser "github.com/alanyang/cloudtask/internal/port/user"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, u domainuser.User) (domainuser.User, error) {
	query := `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, email, name, password_hash, created_at`

	var created domainuser.User
	err := s.pool.QueryRow(ctx, query, u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt).Scan(
		&created.ID, &created.Email, &created.Name, &created.PasswordHash, &created.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainuser.User{}, fmt.Errorf("user %q: %w", u.Email, portuser.ErrDuplicate)
		}
		return domainuser.User{}, fmt.Errorf("inserting user: %w", err)
	}
	return created, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (domainuser.User, error) {
	query := `SELECT id, email, name, password_hash, created_at FROM users WHERE email = $1`

	var u domainuser.User
	err := s.pool.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainuser.User{}, fmt.Errorf("user %q: %w", email, portuser.ErrNotFound)
		}
		return domainuser.User{}, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (domainuser.User, error) {
	query := `SELECT id, email, name, password_hash, created_at FROM users WHERE id = $1`

	var u domainuser.User
	err := s.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainuser.User{}, fmt.Errorf("user %s: %w", id, portuser.ErrNotFound)
		}
		return domainuser.User{}, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}
