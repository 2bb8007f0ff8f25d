package task

import (
	"context"
	"errors"

	"github.com/google/uuid"

	domaintask "github.com/alanyang/cloudtask/internal/domain/task"
)

// ErrNotFound distinguishes a vanished row from a transport failure.
var ErrNotFound = errors.New("task store: not found")

// ErrStale is returned when a status-guarded UPDATE matches no row: either
// the row vanished or another writer advanced it first.
var ErrStale = errors.New("task store: stale status")

// Store persists tasks and their attempts. The task row is the single point
// of truth for claim exclusivity: UpdateStatus only writes when the row still
// holds the status the caller observed.
type Store interface {
	Create(ctx context.Context, t domaintask.Task) (domaintask.Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (domaintask.Task, error)
	List(ctx context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error)

	// UpdateStatus performs a status-guarded UPDATE: the write succeeds only
	// if the row's current status equals `from`, and also sets the assignee.
	// Passing assignee == nil leaves the column unchanged.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domaintask.Status, assignee *uuid.UUID) error

	CreateAttempt(ctx context.Context, a domaintask.Attempt) (domaintask.Attempt, error)
	GetAttempt(ctx context.Context, id uuid.UUID) (domaintask.Attempt, error)
	// ListAttempts returns the task's attempts newest first.
	ListAttempts(ctx context.Context, taskID uuid.UUID) ([]domaintask.Attempt, error)
	UpdateAttempt(ctx context.Context, a domaintask.Attempt) error
	// HasOpenAttempt reports whether any attempt for the task is non-terminal.
	HasOpenAttempt(ctx context.Context, taskID uuid.UUID) (bool, error)
}
