package environment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainenv "github.com/alanyang/cloudtask/internal/domain/environment"
	portenv "github.com/alanyang/cloudtask/internal/port/environment"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, e domainenv.Environment) (domainenv.Environment, error) {
	query := `
		INSERT INTO environments (id, label, repository_id, branch, is_pinned)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, label, repository_id, branch, is_pinned`

	var created domainenv.Environment
	err := s.pool.QueryRow(ctx, query, e.ID, e.Label, e.RepositoryID, e.Branch, e.IsPinned).Scan(
		&created.ID, &created.Label, &created.RepositoryID, &created.Branch, &created.IsPinned,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainenv.Environment{}, fmt.Errorf("environment %q: %w", e.ID, portenv.ErrDuplicate)
		}
		return domainenv.Environment{}, fmt.Errorf("inserting environment: %w", err)
	}
	return created, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (domainenv.Environment, error) {
	query := `SELECT id, label, repository_id, branch, is_pinned FROM environments WHERE id = $1`

	var e domainenv.Environment
	err := s.pool.QueryRow(ctx, query, id).Scan(&e.ID, &e.Label, &e.RepositoryID, &e.Branch, &e.IsPinned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainenv.Environment{}, fmt.Errorf("environment %q: %w", id, portenv.ErrNotFound)
		}
		return domainenv.Environment{}, fmt.Errorf("querying environment: %w", err)
	}
	return e, nil
}
