package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domaintask "github.com/alanyang/cloudtask/internal/domain/task"
	porttask "github.com/alanyang/cloudtask/internal/port/task"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, t domaintask.Task) (domaintask.Task, error) {
	query := `
		INSERT INTO tasks (id, title, description, repository_id, status,
			assignee_id, created_by, created_at, updated_at, environment_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, title, description, repository_id, status,
			assignee_id, created_by, created_at, updated_at, environment_id`

	var created domaintask.Task
	err := s.pool.QueryRow(ctx, query,
		t.ID, t.Title, t.Description, t.RepositoryID, t.Status,
		t.AssigneeID, t.CreatedBy, t.CreatedAt, t.UpdatedAt, t.EnvironmentID,
	).Scan(
		&created.ID, &created.Title, &created.Description, &created.RepositoryID,
		&created.Status, &created.AssigneeID, &created.CreatedBy,
		&created.CreatedAt, &created.UpdatedAt, &created.EnvironmentID,
	)
	if err != nil {
		return domaintask.Task{}, fmt.Errorf("inserting task: %w", err)
	}
	return created, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (domaintask.Task, error) {
	query := `
		SELECT id, title, description, repository_id, status,
			assignee_id, created_by, created_at, updated_at, environment_id
		FROM tasks WHERE id = $1`

	var t domaintask.Task
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.Description, &t.RepositoryID, &t.Status,
		&t.AssigneeID, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &t.EnvironmentID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domaintask.Task{}, fmt.Errorf("task %s: %w", id, porttask.ErrNotFound)
		}
		return domaintask.Task{}, fmt.Errorf("querying task: %w", err)
	}
	return t, nil
}

func (s *Store) List(ctx context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error) {
	query := `
		SELECT id, title, description, repository_id, status,
			assignee_id, created_by, created_at, updated_at, environment_id
		FROM tasks WHERE 1=1`

	args := []interface{}{}
	argIdx := 1

	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*filters.Status))
		argIdx++
	}

	query += " ORDER BY updated_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// UpdateStatus is the claim protocol's compare-and-swap: the UPDATE is guarded
// by the status the caller observed, so a concurrent writer that advanced the
// row first makes this a no-op reported as ErrStale.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domaintask.Status, assignee *uuid.UUID) error {
	now := time.Now().UTC()

	var query string
	var args []interface{}
	if assignee != nil {
		query = `UPDATE tasks SET status = $1, assignee_id = $2, updated_at = $3 WHERE id = $4 AND status = $5`
		args = []interface{}{string(to), *assignee, now, id, string(from)}
	} else {
		query = `UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
		args = []interface{}{string(to), now, id, string(from)}
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s: expected status %s: %w", id, from, porttask.ErrStale)
	}
	return nil
}

func (s *Store) CreateAttempt(ctx context.Context, a domaintask.Attempt) (domaintask.Attempt, error) {
	query := `
		INSERT INTO task_attempts (id, task_id, created_by, status,
			diff_artifact_id, log_artifact_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, task_id, created_by, status,
			diff_artifact_id, log_artifact_id, created_at, updated_at`

	var created domaintask.Attempt
	err := s.pool.QueryRow(ctx, query,
		a.ID, a.TaskID, a.CreatedBy, a.Status,
		a.DiffArtifactID, a.LogArtifactID, a.CreatedAt, a.UpdatedAt,
	).Scan(
		&created.ID, &created.TaskID, &created.CreatedBy, &created.Status,
		&created.DiffArtifactID, &created.LogArtifactID, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		return domaintask.Attempt{}, fmt.Errorf("inserting attempt: %w", err)
	}
	return created, nil
}

func (s *Store) GetAttempt(ctx context.Context, id uuid.UUID) (domaintask.Attempt, error) {
	query := `
		SELECT id, task_id, created_by, status, diff_artifact_id, log_artifact_id, created_at, updated_at
		FROM task_attempts WHERE id = $1`

	var a domaintask.Attempt
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.TaskID, &a.CreatedBy, &a.Status,
		&a.DiffArtifactID, &a.LogArtifactID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domaintask.Attempt{}, fmt.Errorf("attempt %s: %w", id, porttask.ErrNotFound)
		}
		return domaintask.Attempt{}, fmt.Errorf("querying attempt: %w", err)
	}
	return a, nil
}

func (s *Store) ListAttempts(ctx context.Context, taskID uuid.UUID) ([]domaintask.Attempt, error) {
	query := `
		SELECT id, task_id, created_by, status, diff_artifact_id, log_artifact_id, created_at, updated_at
		FROM task_attempts WHERE task_id = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domaintask.Attempt
	for rows.Next() {
		var a domaintask.Attempt
		if err := rows.Scan(
			&a.ID, &a.TaskID, &a.CreatedBy, &a.Status,
			&a.DiffArtifactID, &a.LogArtifactID, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning attempt row: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attempt rows: %w", err)
	}
	return attempts, nil
}

func (s *Store) UpdateAttempt(ctx context.Context, a domaintask.Attempt) error {
	query := `
		UPDATE task_attempts
		SET status = $2, diff_artifact_id = $3, log_artifact_id = $4, updated_at = $5
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, a.ID, a.Status, a.DiffArtifactID, a.LogArtifactID, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attempt %s: %w", a.ID, porttask.ErrNotFound)
	}
	return nil
}

func (s *Store) HasOpenAttempt(ctx context.Context, taskID uuid.UUID) (bool, error) {
	query := `
		SELECT COUNT(1) FROM task_attempts
		WHERE task_id = $1 AND status IN ('queued', 'running')`

	var count int64
	if err := s.pool.QueryRow(ctx, query, taskID).Scan(&count); err != nil {
		return false, fmt.Errorf("counting open attempts: %w", err)
	}
	return count > 0, nil
}

func scanTasks(rows pgx.Rows) ([]domaintask.Task, error) {
	var tasks []domaintask.Task
	for rows.Next() {
		var t domaintask.Task
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.RepositoryID, &t.Status,
			&t.AssigneeID, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &t.EnvironmentID,
		); err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task rows: %w", err)
	}
	return tasks, nil
}
