package task

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusClaimed Status = "claimed"
	StatusRunning Status = "running"
	StatusReview  Status = "review"
	StatusApplied Status = "applied"
)

// validTransitions encodes the task lifecycle. Claimed/Running fall back to
// Pending when an attempt fails; Review re-enters Claimed for a follow-up
// attempt on the same task.
var validTransitions = map[Status][]Status{
	StatusPending: {StatusClaimed},
	StatusClaimed: {StatusRunning, StatusPending},
	StatusRunning: {StatusReview, StatusPending},
	StatusReview:  {StatusClaimed, StatusApplied},
	StatusApplied: {},
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Claimable reports whether a worker may take exclusive ownership of a task
// in this status.
func (s Status) Claimable() bool {
	return s == StatusPending || s == StatusReview
}

func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

type Task struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	RepositoryID  uuid.UUID  `json:"repository_id"`
	Status        Status     `json:"status"`
	AssigneeID    *uuid.UUID `json:"assignee_id,omitempty"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	EnvironmentID *string    `json:"environment_id,omitempty"`
}

func New(title, description string, repositoryID, createdBy uuid.UUID, environmentID *string) Task {
	now := time.Now().UTC()
	return Task{
		ID:            uuid.New(),
		Title:         title,
		Description:   description,
		RepositoryID:  repositoryID,
		Status:        StatusPending,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
		EnvironmentID: environmentID,
	}
}

type ListFilters struct {
	Status *Status
}

// ClaimTTL is the advertised claim lease duration. The expiry is returned to
// the claiming worker but never persisted or enforced; stale claims are not
// automatically released.
const ClaimTTL = 30 * time.Minute
