package artifact

import "context"

// Store persists attempt artifacts (diff and log text blobs) and resolves
// their opaque ids to retrieval URLs. Byte storage is a collaborator of the
// claim protocol, not part of it; this boundary is all the lifecycle needs.
type Store interface {
	// StoreText writes content and returns a new artifact id. The suffix
	// ("diff" or "log") becomes part of the id for operator legibility.
	StoreText(ctx context.Context, content, suffix string) (string, error)
	ReadText(ctx context.Context, artifactID string) (string, error)
	URL(ctx context.Context, artifactID string) (string, error)
}
