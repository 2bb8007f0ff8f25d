package user

import (
	"context"
	"errors"

	"github.com/google/uuid"

	domainuser "github.com/alanyang/cloudtask/internal/domain/user"
)

var (
	ErrNotFound  = errors.New("user store: not found")
	ErrDuplicate = errors.New("user store: duplicate email")
)

type Store interface {
	Create(ctx context.Context, u domainuser.User) (domainuser.User, error)
	GetByEmail(ctx context.Context, email string) (domainuser.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (domainuser.User, error)
}
