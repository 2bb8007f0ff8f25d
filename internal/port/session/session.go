package session

import (
	"context"
	"time"
)

// Cache maps opaque bearer tokens to user ids with a TTL. Tokens are never
// persisted; a restart invalidates all sessions, which the worker's
// re-authenticate-on-401 path absorbs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}
