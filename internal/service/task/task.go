package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyang/cloudtask/internal/domain/event"
	domainrepo "github.com/alanyang/cloudtask/internal/domain/repository"
	domaintask "github.com/alanyang/cloudtask/internal/domain/task"
	portartifact "github.com/alanyang/cloudtask/internal/port/artifact"
	portenv "github.com/alanyang/cloudtask/internal/port/environment"
	portbus "github.com/alanyang/cloudtask/internal/port/eventbus"
	portrepo "github.com/alanyang/cloudtask/internal/port/repository"
	porttask "github.com/alanyang/cloudtask/internal/port/task"
)

// Sentinels for the claim protocol's error taxonomy. Transport maps these to
// HTTP statuses; everything else is a 500.
var (
	ErrNotFound  = errors.New("task not found")
	ErrForbidden = errors.New("caller is not the assignee")
	ErrConflict  = errors.New("task not claimable")
	ErrInvalid   = errors.New("invalid request")
)

// Service owns the task/attempt state machine. Claim exclusivity rests on the
// store's status-guarded UPDATE: the read and the write are two separate
// operations, and a lost race surfaces as a Conflict rather than a double
// claim.
type Service struct {
	store     porttask.Store
	repos     portrepo.Store
	envs      portenv.Store
	artifacts portartifact.Store
	bus       portbus.EventBus
}

func NewService(
	store porttask.Store,
	repos portrepo.Store,
	envs portenv.Store,
	artifacts portartifact.Store,
	bus portbus.EventBus,
) *Service {
	return &Service{
		store:     store,
		repos:     repos,
		envs:      envs,
		artifacts: artifacts,
		bus:       bus,
	}
}

// ClaimInfo is returned to the winning worker. The expiry is advisory only:
// it is never persisted and no sweep reclaims stale claims.
type ClaimInfo struct {
	ClaimExpiresAt time.Time `json:"claim_expires_at"`
}

// AttemptView is an attempt with its artifact ids resolved to retrieval URLs.
type AttemptView struct {
	domaintask.Attempt
	DiffURL *string `json:"diff_url,omitempty"`
	LogURL  *string `json:"log_url,omitempty"`
}

// Detail is the full task view: the task, its repository summary and its
// attempts newest first.
type Detail struct {
	domaintask.Task
	Repository *domainrepo.Repository `json:"repository,omitempty"`
	Attempts   []AttemptView          `json:"attempts"`
}

// Outcome is the payload a worker reports when finishing an attempt.
type Outcome struct {
	Status domaintask.AttemptStatus
	Diff   *string
	Log    *string
}

// CompleteResult echoes the stored attempt status with resolved artifact URLs.
type CompleteResult struct {
	Status  domaintask.AttemptStatus `json:"status"`
	DiffURL *string                  `json:"diff_url,omitempty"`
	LogURL  *string                  `json:"log_url,omitempty"`
}

func (s *Service) Create(ctx context.Context, createdBy uuid.UUID, title, description string, repositoryID uuid.UUID, environmentID *string) (Detail, error) {
	repo, err := s.repos.GetByID(ctx, repositoryID)
	if err != nil {
		if errors.Is(err, portrepo.ErrNotFound) {
			return Detail{}, fmt.Errorf("repository %s: %w", repositoryID, ErrInvalid)
		}
		return Detail{}, fmt.Errorf("fetch repository: %w", err)
	}

	if environmentID != nil {
		if _, err := s.envs.GetByID(ctx, *environmentID); err != nil {
			if errors.Is(err, portenv.ErrNotFound) {
				return Detail{}, fmt.Errorf("environment %q: %w", *environmentID, ErrInvalid)
			}
			return Detail{}, fmt.Errorf("fetch environment: %w", err)
		}
	}

	created, err := s.store.Create(ctx, domaintask.New(title, description, repositoryID, createdBy, environmentID))
	if err != nil {
		return Detail{}, fmt.Errorf("create task: %w", err)
	}

	s.publish(ctx, event.TypeTaskCreated, created.ID)

	return Detail{Task: created, Repository: &repo, Attempts: []AttemptView{}}, nil
}

func (s *Service) List(ctx context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error) {
	tasks, err := s.store.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Get assembles the detail view. A missing repository row degrades to a nil
// summary instead of failing the whole read.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Detail, error) {
	t, err := s.fetchTask(ctx, id)
	if err != nil {
		return Detail{}, err
	}

	detail := Detail{Task: t, Attempts: []AttemptView{}}

	if repo, err := s.repos.GetByID(ctx, t.RepositoryID); err == nil {
		detail.Repository = &repo
	}

	attempts, err := s.store.ListAttempts(ctx, t.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("list attempts: %w", err)
	}
	for _, a := range attempts {
		view := AttemptView{Attempt: a}
		if view.DiffURL, err = s.resolveURL(ctx, a.DiffArtifactID); err != nil {
			return Detail{}, err
		}
		if view.LogURL, err = s.resolveURL(ctx, a.LogArtifactID); err != nil {
			return Detail{}, err
		}
		detail.Attempts = append(detail.Attempts, view)
	}

	return detail, nil
}

// Claim takes exclusive ownership of a Pending or Review task for the caller.
// Any other observed status, or a status-guard miss on the write, is a
// Conflict: another worker won.
func (s *Service) Claim(ctx context.Context, id, caller uuid.UUID) (ClaimInfo, error) {
	t, err := s.fetchTask(ctx, id)
	if err != nil {
		return ClaimInfo{}, err
	}

	if !t.Status.Claimable() {
		return ClaimInfo{}, fmt.Errorf("task %s in status %s: %w", id, t.Status, ErrConflict)
	}

	if err := s.store.UpdateStatus(ctx, id, t.Status, domaintask.StatusClaimed, &caller); err != nil {
		if errors.Is(err, porttask.ErrStale) {
			return ClaimInfo{}, fmt.Errorf("task %s: %w", id, ErrConflict)
		}
		return ClaimInfo{}, fmt.Errorf("claim task: %w", err)
	}

	s.publish(ctx, event.TypeTaskClaimed, id)

	return ClaimInfo{ClaimExpiresAt: time.Now().UTC().Add(domaintask.ClaimTTL)}, nil
}

// StartAttempt opens a new attempt for the caller's claimed task and advances
// the task to Running. Exactly one attempt may be open at a time; that is
// enforced here, not by a database constraint.
func (s *Service) StartAttempt(ctx context.Context, taskID, caller uuid.UUID) (domaintask.Attempt, error) {
	t, err := s.fetchTask(ctx, taskID)
	if err != nil {
		return domaintask.Attempt{}, err
	}

	if t.AssigneeID == nil || *t.AssigneeID != caller {
		return domaintask.Attempt{}, fmt.Errorf("task %s: %w", taskID, ErrForbidden)
	}

	open, err := s.store.HasOpenAttempt(ctx, taskID)
	if err != nil {
		return domaintask.Attempt{}, fmt.Errorf("check open attempts: %w", err)
	}
	if open {
		return domaintask.Attempt{}, fmt.Errorf("task %s already has a running attempt: %w", taskID, ErrConflict)
	}

	if !t.Status.CanTransitionTo(domaintask.StatusRunning) {
		return domaintask.Attempt{}, fmt.Errorf("task %s in status %s: %w", taskID, t.Status, ErrConflict)
	}

	if err := s.store.UpdateStatus(ctx, taskID, t.Status, domaintask.StatusRunning, nil); err != nil {
		if errors.Is(err, porttask.ErrStale) {
			return domaintask.Attempt{}, fmt.Errorf("task %s: %w", taskID, ErrConflict)
		}
		return domaintask.Attempt{}, fmt.Errorf("advance task to running: %w", err)
	}

	attempt, err := s.store.CreateAttempt(ctx, domaintask.NewAttempt(taskID, caller))
	if err != nil {
		return domaintask.Attempt{}, fmt.Errorf("create attempt: %w", err)
	}

	s.publish(ctx, event.TypeAttemptStarted, attempt.ID)

	return attempt, nil
}

// CompleteAttempt stores the reported artifacts, finalises the attempt and
// drives the parent task: Succeeded parks it in Review, Failed releases it
// back to Pending, non-terminal statuses leave it untouched.
func (s *Service) CompleteAttempt(ctx context.Context, attemptID, caller uuid.UUID, outcome Outcome) (CompleteResult, error) {
	if !outcome.Status.Valid() {
		return CompleteResult{}, fmt.Errorf("attempt status %q: %w", outcome.Status, ErrInvalid)
	}

	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, porttask.ErrNotFound) {
			return CompleteResult{}, fmt.Errorf("attempt %s: %w", attemptID, ErrNotFound)
		}
		return CompleteResult{}, fmt.Errorf("fetch attempt: %w", err)
	}

	t, err := s.fetchTask(ctx, attempt.TaskID)
	if err != nil {
		return CompleteResult{}, err
	}

	if t.AssigneeID == nil || *t.AssigneeID != caller {
		return CompleteResult{}, fmt.Errorf("attempt %s: %w", attemptID, ErrForbidden)
	}

	if outcome.Diff != nil {
		id, err := s.artifacts.StoreText(ctx, *outcome.Diff, "diff")
		if err != nil {
			return CompleteResult{}, fmt.Errorf("store diff artifact: %w", err)
		}
		attempt.DiffArtifactID = &id
	}
	if outcome.Log != nil {
		id, err := s.artifacts.StoreText(ctx, *outcome.Log, "log")
		if err != nil {
			return CompleteResult{}, fmt.Errorf("store log artifact: %w", err)
		}
		attempt.LogArtifactID = &id
	}

	attempt.Status = outcome.Status
	attempt.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateAttempt(ctx, attempt); err != nil {
		return CompleteResult{}, fmt.Errorf("update attempt: %w", err)
	}

	if next := outcome.Status.TaskResult(t.Status); next != t.Status {
		if err := s.store.UpdateStatus(ctx, t.ID, t.Status, next, nil); err != nil {
			return CompleteResult{}, fmt.Errorf("drive task to %s: %w", next, err)
		}
	}

	s.publish(ctx, event.TypeAttemptCompleted, attempt.ID)

	result := CompleteResult{Status: attempt.Status}
	if result.DiffURL, err = s.resolveURL(ctx, attempt.DiffArtifactID); err != nil {
		return CompleteResult{}, err
	}
	if result.LogURL, err = s.resolveURL(ctx, attempt.LogArtifactID); err != nil {
		return CompleteResult{}, err
	}
	return result, nil
}

func (s *Service) fetchTask(ctx context.Context, id uuid.UUID) (domaintask.Task, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, porttask.ErrNotFound) {
			return domaintask.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return domaintask.Task{}, fmt.Errorf("fetch task: %w", err)
	}
	return t, nil
}

func (s *Service) resolveURL(ctx context.Context, artifactID *string) (*string, error) {
	if artifactID == nil {
		return nil, nil
	}
	url, err := s.artifacts.URL(ctx, *artifactID)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact url: %w", err)
	}
	return &url, nil
}

func (s *Service) publish(ctx context.Context, t event.Type, id uuid.UUID) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event.New(t, id)); err != nil {
		slog.ErrorContext(ctx, "failed to publish event", "type", t, "entity_id", id, "error", err)
	}
}
