package environment

import (
	"context"
	"errors"

	domainenv "github.com/alanyang/cloudtask/internal/domain/environment"
)

var (
	ErrNotFound  = errors.New("environment store: not found")
	ErrDuplicate = errors.New("environment store: duplicate id")
)

type Store interface {
	Create(ctx context.Context, e domainenv.Environment) (domainenv.Environment, error)
	GetByID(ctx context.Context, id string) (domainenv.Environment, error)
}
