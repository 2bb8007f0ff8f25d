package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	domainrepo "github.com/alanyang/cloudtask/internal/domain/repository"
)

var (
	ErrNotFound  = errors.New("repository store: not found")
	ErrDuplicate = errors.New("repository store: duplicate name")
)

type Store interface {
	Create(ctx context.Context, r domainrepo.Repository) (domainrepo.Repository, error)
	GetByID(ctx context.Context, id uuid.UUID) (domainrepo.Repository, error)
	List(ctx context.Context) ([]domainrepo.Repository, error)
}
