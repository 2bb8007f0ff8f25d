package repository

import "github.com/google/uuid"

type Repository struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	GitURL        string    `json:"git_url"`
	DefaultBranch string    `json:"default_branch"`
}
