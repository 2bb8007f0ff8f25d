package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	domainrepo "github.com/alanyang/cloudtask/internal/domain/repository"
	portrepo "github.com/alanyang/cloudtask/internal/port/repository"
)

var (
	ErrNotFound  = errors.New("repository not found")
	ErrDuplicate = errors.New("repository name already registered")
	ErrInvalid   = errors.New("invalid repository")
)

type Service struct {
	store portrepo.Store
}

func NewService(store portrepo.Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, name, gitURL, defaultBranch string) (domainrepo.Repository, error) {
	name = strings.TrimSpace(name)
	gitURL = strings.TrimSpace(gitURL)
	if name == "" || gitURL == "" {
		return domainrepo.Repository{}, fmt.Errorf("%w: name and git_url are required", ErrInvalid)
	}
	if defaultBranch == "" {
		defaultBranch = "main"
	}

	created, err := s.store.Create(ctx, domainrepo.Repository{
		ID:            uuid.New(),
		Name:          name,
		GitURL:        gitURL,
		DefaultBranch: defaultBranch,
	})
	if err != nil {
		if errors.Is(err, portrepo.ErrDuplicate) {
			return domainrepo.Repository{}, fmt.Errorf("%w: %s", ErrDuplicate, name)
		}
		return domainrepo.Repository{}, fmt.Errorf("create repository: %w", err)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domainrepo.Repository, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, portrepo.ErrNotFound) {
			return domainrepo.Repository{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return domainrepo.Repository{}, fmt.Errorf("get repository: %w", err)
	}
	return r, nil
}

func (s *Service) List(ctx context.Context) ([]domainrepo.Repository, error) {
	repos, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	return repos, nil
}
