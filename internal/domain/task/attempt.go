package task

import (
	"time"

	"github.com/google/uuid"
)

type AttemptStatus string

const (
	AttemptQueued    AttemptStatus = "queued"
	AttemptRunning   AttemptStatus = "running"
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
)

func (s AttemptStatus) Valid() bool {
	switch s {
	case AttemptQueued, AttemptRunning, AttemptSucceeded, AttemptFailed:
		return true
	}
	return false
}

func (s AttemptStatus) Terminal() bool {
	return s == AttemptSucceeded || s == AttemptFailed
}

// TaskResult is the task status a completed attempt drives its parent into.
// Non-terminal attempt statuses leave the task untouched.
func (s AttemptStatus) TaskResult(current Status) Status {
	switch s {
	case AttemptSucceeded:
		return StatusReview
	case AttemptFailed:
		return StatusPending
	default:
		return current
	}
}

type Attempt struct {
	ID             uuid.UUID     `json:"id"`
	TaskID         uuid.UUID     `json:"task_id"`
	CreatedBy      uuid.UUID     `json:"created_by"`
	Status         AttemptStatus `json:"status"`
	DiffArtifactID *string       `json:"diff_artifact_id,omitempty"`
	LogArtifactID  *string       `json:"log_artifact_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func NewAttempt(taskID, createdBy uuid.UUID) Attempt {
	now := time.Now().UTC()
	return Attempt{
		ID:        uuid.New(),
		TaskID:    taskID,
		CreatedBy: createdBy,
		Status:    AttemptRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
