package environment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainenv "github.com/alanyang/cloudtask/internal/domain/environment"
	portenv "github.com/alanyang/cloudtask/internal/port/environment"
	portrepo "github.com/alanyang/cloudtask/internal/port/repository"
)

var (
	ErrNotFound  = errors.New("environment not found")
	ErrDuplicate = errors.New("environment id already registered")
	ErrInvalid   = errors.New("invalid environment")
)

type Service struct {
	store portenv.Store
	repos portrepo.Store
}

func NewService(store portenv.Store, repos portrepo.Store) *Service {
	return &Service{store: store, repos: repos}
}

func (s *Service) Create(ctx context.Context, e domainenv.Environment) (domainenv.Environment, error) {
	e.ID = strings.TrimSpace(e.ID)
	if e.ID == "" {
		return domainenv.Environment{}, fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if e.Branch == "" {
		e.Branch = "main"
	}

	// The referenced repository must exist before an environment can target it.
	if _, err := s.repos.GetByID(ctx, e.RepositoryID); err != nil {
		if errors.Is(err, portrepo.ErrNotFound) {
			return domainenv.Environment{}, fmt.Errorf("%w: repository %s", ErrInvalid, e.RepositoryID)
		}
		return domainenv.Environment{}, fmt.Errorf("check repository: %w", err)
	}

	created, err := s.store.Create(ctx, e)
	if err != nil {
		if errors.Is(err, portenv.ErrDuplicate) {
			return domainenv.Environment{}, fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
		}
		return domainenv.Environment{}, fmt.Errorf("create environment: %w", err)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (domainenv.Environment, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, portenv.ErrNotFound) {
			return domainenv.Environment{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return domainenv.Environment{}, fmt.Errorf("get environment: %w", err)
	}
	return e, nil
}
