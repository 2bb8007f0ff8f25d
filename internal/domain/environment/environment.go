package environment

import "github.com/google/uuid"

// Environment ties a named execution target to a repository branch.
// IDs are caller-chosen strings (e.g. "staging", "local-dev"), not UUIDs.
type Environment struct {
	ID           string    `json:"id"`
	Label        string    `json:"label,omitempty"`
	RepositoryID uuid.UUID `json:"repository_id"`
	Branch       string    `json:"branch"`
	IsPinned     bool      `json:"is_pinned"`
}
