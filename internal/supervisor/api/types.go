package api

import "github.com/google/uuid"

// TaskSummary is one row of GET /tasks.
type TaskSummary struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	EnvironmentID *string   `json:"environment_id,omitempty"`
}

// RepositorySummary is the repository block embedded in a task detail.
type RepositorySummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	GitURL        string    `json:"git_url"`
	DefaultBranch string    `json:"default_branch"`
}

// TaskDetail is the full task view from GET /tasks/:id.
type TaskDetail struct {
	ID            uuid.UUID          `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description,omitempty"`
	EnvironmentID *string            `json:"environment_id,omitempty"`
	Repository    *RepositorySummary `json:"repository,omitempty"`
}

// AttemptRef identifies a started attempt.
type AttemptRef struct {
	ID uuid.UUID `json:"id"`
}

// ClaimInfo is the claim endpoint's response. The expiry is advisory.
type ClaimInfo struct {
	ClaimExpiresAt string `json:"claim_expires_at"`
}

// Outcome is the attempt completion payload.
type Outcome struct {
	Status string  `json:"status"`
	Diff   *string `json:"diff,omitempty"`
	Log    *string `json:"log,omitempty"`
}
