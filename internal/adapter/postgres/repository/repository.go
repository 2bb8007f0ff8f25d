package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainrepo "github.com/alanyang/cloudtask/internal/domain/repository"
	portrepo "github.com/alanyang/cloudtask/internal/port/repository"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, r domainrepo.Repository) (domainrepo.Repository, error) {
	query := `
		INSERT INTO repositories (id, name, git_url, default_branch)
		VALUES ($1,$2,$3,$4)
		RETURNING id, name, git_url, default_branch`

	var created domainrepo.Repository
	err := s.pool.QueryRow(ctx, query, r.ID, r.Name, r.GitURL, r.DefaultBranch).Scan(
		&created.ID, &created.Name, &created.GitURL, &created.DefaultBranch,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainrepo.Repository{}, fmt.Errorf("repository %q: %w", r.Name, portrepo.ErrDuplicate)
		}
		return domainrepo.Repository{}, fmt.Errorf("inserting repository: %w", err)
	}
	return created, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (domainrepo.Repository, error) {
	query := `SELECT id, name, git_url, default_branch FROM repositories WHERE id = $1`

	var r domainrepo.Repository
	err := s.pool.QueryRow(ctx, query, id).Scan(&r.ID, &r.Name, &r.GitURL, &r.DefaultBranch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainrepo.Repository{}, fmt.Errorf("repository %s: %w", id, portrepo.ErrNotFound)
		}
		return domainrepo.Repository{}, fmt.Errorf("querying repository: %w", err)
	}
	return r, nil
}

func (s *Store) List(ctx context.Context) ([]domainrepo.Repository, error) {
	query := `SELECT id, name, git_url, default_branch FROM repositories ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	defer rows.Close()

	var repos []domainrepo.Repository
	for rows.Next() {
		var r domainrepo.Repository
		if err := rows.Scan(&r.ID, &r.Name, &r.GitURL, &r.DefaultBranch); err != nil {
			return nil, fmt.Errorf("scanning repository row: %w", err)
		}
		repos = append(repos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating repository rows: %w", err)
	}
	return repos, nil
}
