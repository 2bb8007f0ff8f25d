package runner_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/cloudtask/internal/runner"
	"github.com/alanyang/cloudtask/internal/snapshot"
	"github.com/alanyang/cloudtask/internal/supervisor/api"
)

func TestNew_CreatesCacheDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")
	_, err := runner.New(root)
	require.NoError(t, err)

	for _, dir := range []string{"git", "npm", "pip", "cargo"} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
}

func TestExecute_ArtifactsCarryMetadata(t *testing.T) {
	root := t.TempDir()
	r, err := runner.New(root)
	require.NoError(t, err)

	repoID := uuid.New()
	envID := "local-dev"
	rc := runner.Context{
		Task:    api.TaskSummary{ID: uuid.New(), Title: "Demo Task"},
		Attempt: api.AttemptRef{ID: uuid.New()},
		Detail: &api.TaskDetail{
			ID:            uuid.New(),
			Title:         "Demo Task",
			Description:   "first line\nsecond line",
			EnvironmentID: &envID,
			Repository: &api.RepositorySummary{
				ID:            repoID,
				Name:          "demo-repo",
				GitURL:        "https://example.com/demo.git",
				DefaultBranch: "main",
			},
		},
	}
	lease := snapshot.Lease{ID: "tmpl-warm", Recyclable: true}

	artifacts, err := r.Execute(rc, lease)
	require.NoError(t, err)
	require.NotNil(t, artifacts.Diff)
	require.NotNil(t, artifacts.Log)

	diff := *artifacts.Diff
	assert.Contains(t, diff, rc.Task.ID.String())
	assert.Contains(t, diff, "Demo Task")
	assert.Contains(t, diff, "demo-repo")
	assert.Contains(t, diff, "Using snapshot: tmpl-warm")
	assert.Contains(t, diff, root)
	assert.Contains(t, diff, "+> first line")
	assert.Contains(t, diff, "+> second line")

	log := *artifacts.Log
	assert.Contains(t, log, rc.Attempt.ID.String())
	assert.Contains(t, log, "Demo Task")
	assert.Contains(t, log, "demo-repo")
	assert.Contains(t, log, "Using prewarmed snapshot: tmpl-warm")
	assert.Contains(t, log, "Cache hits:")
	assert.Contains(t, log, "Git mirror")
	assert.Contains(t, log, "Environment: local-dev")

	// The per-repository git mirror was prepared on disk.
	mirror := filepath.Join(root, "git", repoID.String())
	info, err := os.Stat(mirror)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Contains(t, diff, mirror)
}

func TestExecute_NoDetailReportsMirrorMiss(t *testing.T) {
	r, err := runner.New(t.TempDir())
	require.NoError(t, err)

	rc := runner.Context{
		Task:    api.TaskSummary{ID: uuid.New(), Title: "Bare"},
		Attempt: api.AttemptRef{ID: uuid.New()},
	}

	artifacts, err := r.Execute(rc, snapshot.Lease{ID: "snap-1"})
	require.NoError(t, err)
	assert.Contains(t, *artifacts.Log, "- Git mirror: miss")
	assert.NotContains(t, *artifacts.Diff, "Repository mirror cache")
}

func TestFailureLog_Format(t *testing.T) {
	attemptID := uuid.New()
	taskID := uuid.New()

	log := runner.FailureLog(attemptID, taskID, errors.New("hook exploded"))
	assert.Contains(t, log, "Attempt "+attemptID.String()+" failed for task "+taskID.String())
	assert.Contains(t, log, "hook exploded")
	assert.Regexp(t, `^\[\d{4}-`, log)
}
