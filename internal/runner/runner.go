package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alanyang/cloudtask/internal/snapshot"
	"github.com/alanyang/cloudtask/internal/supervisor/api"
)

// CacheLayout is the on-disk dependency cache shared across attempts: one
// namespace per package manager plus per-repository git mirrors.
type CacheLayout struct {
	Root  string
	Git   string
	NPM   string
	Pip   string
	Cargo string
}

func NewCacheLayout(root string) CacheLayout {
	return CacheLayout{
		Root:  root,
		Git:   filepath.Join(root, "git"),
		NPM:   filepath.Join(root, "npm"),
		Pip:   filepath.Join(root, "pip"),
		Cargo: filepath.Join(root, "cargo"),
	}
}

// EnsureDirectories creates every cache namespace. Called once at startup.
func (c CacheLayout) EnsureDirectories() error {
	for _, dir := range []string{c.Root, c.Git, c.NPM, c.Pip, c.Cargo} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory %s: %w", dir, err)
		}
	}
	return nil
}

// prepareRepositoryCache creates the per-repository git mirror directory,
// keyed by the repository id. Returns empty when the detail carries no
// repository.
func (c CacheLayout) prepareRepositoryCache(detail *api.TaskDetail) (string, error) {
	if detail == nil || detail.Repository == nil {
		return "", nil
	}

	mirror := filepath.Join(c.Git, detail.Repository.ID.String())
	if err := os.MkdirAll(mirror, 0o755); err != nil {
		return "", fmt.Errorf("prepare git mirror %s: %w", mirror, err)
	}
	return mirror, nil
}

// Context is everything the runner knows about one attempt.
type Context struct {
	Task    api.TaskSummary
	Attempt api.AttemptRef
	Detail  *api.TaskDetail
}

// Artifacts are the text documents an attempt produces.
type Artifacts struct {
	Diff *string
	Log  *string
}

// Runner simulates attempt execution: it warms the dependency caches and
// renders the diff and log documents describing what a real execution would
// have touched.
type Runner struct {
	cache CacheLayout
}

func New(cacheRoot string) (*Runner, error) {
	cache := NewCacheLayout(cacheRoot)
	if err := cache.EnsureDirectories(); err != nil {
		return nil, err
	}
	return &Runner{cache: cache}, nil
}

func (r *Runner) Cache() CacheLayout {
	return r.cache
}

func (r *Runner) Execute(rc Context, lease snapshot.Lease) (Artifacts, error) {
	mirror, err := r.cache.prepareRepositoryCache(rc.Detail)
	if err != nil {
		return Artifacts{}, err
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	diff := buildDiff(rc, timestamp, lease, r.cache, mirror)
	log := buildLog(rc, timestamp, lease, r.cache, mirror)

	return Artifacts{Diff: &diff, Log: &log}, nil
}

func buildDiff(rc Context, timestamp string, lease snapshot.Lease, cache CacheLayout, mirror string) string {
	var b strings.Builder
	b.WriteString("diff --git a/TASK_LOG.md b/TASK_LOG.md\n")
	b.WriteString("--- a/TASK_LOG.md\n")
	b.WriteString("+++ b/TASK_LOG.md\n")
	b.WriteString("@@\n")
	fmt.Fprintf(&b, "+## Task %s (%s)\n", rc.Task.ID, rc.Task.Title)
	fmt.Fprintf(&b, "+Processed at %s UTC by cloudtask-supervisor\n", timestamp)
	fmt.Fprintf(&b, "+Using snapshot: %s\n", lease.ID)
	fmt.Fprintf(&b, "+Cache root: %s\n", cache.Root)
	if mirror != "" {
		fmt.Fprintf(&b, "+Repository mirror cache: %s\n", mirror)
	}
	fmt.Fprintf(&b, "+npm cache: %s\n", cache.NPM)
	fmt.Fprintf(&b, "+pip cache: %s\n", cache.Pip)
	fmt.Fprintf(&b, "+cargo cache: %s\n", cache.Cargo)

	if d := rc.Detail; d != nil {
		fmt.Fprintf(&b, "+Detail ID: %s\n", d.ID)
		fmt.Fprintf(&b, "+Snapshot title: %s\n", d.Title)
		if d.EnvironmentID != nil {
			fmt.Fprintf(&b, "+Environment: %s\n", *d.EnvironmentID)
		}
		if repo := d.Repository; repo != nil {
			fmt.Fprintf(&b, "+Repository: %s (%s) on branch %s (id %s)\n",
				repo.Name, repo.GitURL, repo.DefaultBranch, repo.ID)
		}
		if d.Description != "" {
			for _, line := range strings.Split(d.Description, "\n") {
				b.WriteString("+> ")
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}

	return b.String()
}

func buildLog(rc Context, timestamp string, lease snapshot.Lease, cache CacheLayout, mirror string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Attempt %s succeeded for task %s (%s)",
		timestamp, rc.Attempt.ID, rc.Task.ID, rc.Task.Title)
	fmt.Fprintf(&b, "\nUsing prewarmed snapshot: %s", lease.ID)
	b.WriteString("\nCache hits:")
	if mirror != "" {
		fmt.Fprintf(&b, "\n- Git mirror: %s (hit)", mirror)
	} else {
		b.WriteString("\n- Git mirror: miss")
	}
	fmt.Fprintf(&b, "\n- npm cache: %s", cache.NPM)
	fmt.Fprintf(&b, "\n- pip cache: %s", cache.Pip)
	fmt.Fprintf(&b, "\n- cargo cache: %s", cache.Cargo)

	if d := rc.Detail; d != nil {
		if repo := d.Repository; repo != nil {
			fmt.Fprintf(&b, "\nRepository: %s (%s) default branch %s (id %s)",
				repo.Name, repo.GitURL, repo.DefaultBranch, repo.ID)
		}
		if d.EnvironmentID != nil {
			fmt.Fprintf(&b, "\nEnvironment: %s", *d.EnvironmentID)
		}
		if d.Description != "" {
			b.WriteString("\nTask description:\n")
			b.WriteString(d.Description)
		}
	}

	return b.String()
}

// FailureLog is the synthetic log reported when an attempt errors before
// producing artifacts.
func FailureLog(attemptID, taskID fmt.Stringer, execErr error) string {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	return fmt.Sprintf("[%s] Attempt %s failed for task %s: %v", timestamp, attemptID, taskID, execErr)
}
