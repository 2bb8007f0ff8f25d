package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("artifact: not found")

// LocalStore writes artifacts as flat files under a root directory and
// resolves ids to URLs under a configured base (the control plane's own
// /artifacts route).
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact root %s: %w", root, err)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStore) StoreText(_ context.Context, content, suffix string) (string, error) {
	artifactID := fmt.Sprintf("%s.%s", uuid.New(), suffix)
	path := filepath.Join(s.root, artifactID)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing artifact %s: %w", artifactID, err)
	}
	return artifactID, nil
}

func (s *LocalStore) ReadText(_ context.Context, artifactID string) (string, error) {
	// Ids are server-generated, but they arrive back via URL path params.
	if artifactID != filepath.Base(artifactID) {
		return "", fmt.Errorf("artifact %q: %w", artifactID, ErrNotFound)
	}
	data, err := os.ReadFile(filepath.Join(s.root, artifactID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("artifact %q: %w", artifactID, ErrNotFound)
		}
		return "", fmt.Errorf("reading artifact %s: %w", artifactID, err)
	}
	return string(data), nil
}

func (s *LocalStore) URL(_ context.Context, artifactID string) (string, error) {
	return s.baseURL + "/" + artifactID, nil
}
