package supervisor

import (
	"strings"
	"time"
)

// Config is the supervisor's full runtime configuration, populated by the
// cobra command from flags and CLOUDTASK_* environment variables.
type Config struct {
	APIBase       string
	Email         string
	Password      string
	PollInterval  time.Duration
	EnvironmentID string
	MaxConcurrency int

	SnapshotPoolSize int
	SnapshotTemplate string
	PrewarmHook      string

	CacheRoot string
}

// Normalize clamps nonsensical values instead of failing startup.
func (c Config) Normalize() Config {
	c.APIBase = strings.TrimRight(c.APIBase, "/")
	if c.PollInterval < time.Second {
		c.PollInterval = time.Second
	}
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = 1
	}
	if c.SnapshotPoolSize < 0 {
		c.SnapshotPoolSize = 0
	}
	return c
}
