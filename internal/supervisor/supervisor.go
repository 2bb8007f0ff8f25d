package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyang/cloudtask/internal/runner"
	"github.com/alanyang/cloudtask/internal/snapshot"
	"github.com/alanyang/cloudtask/internal/supervisor/api"
)

// Supervisor polls the control plane for pending tasks and executes them:
// claim, start an attempt, run with a snapshot lease, report the outcome.
// Lost claim races and assignee mismatches are skips, not failures.
type Supervisor struct {
	client *api.Client
	config Config
	pool   *snapshot.Pool
	runner *runner.Runner
}

// New authenticates, warms the snapshot pool and prepares the cache layout.
func New(ctx context.Context, config Config) (*Supervisor, error) {
	config = config.Normalize()

	client := api.NewClient(config.APIBase, config.Email, config.Password)
	if err := client.Login(ctx); err != nil {
		return nil, fmt.Errorf("initial login: %w", err)
	}
	slog.Info("initial access token acquired")

	var provisioner snapshot.Provisioner
	if config.PrewarmHook != "" {
		provisioner = &snapshot.HookProvisioner{Command: config.PrewarmHook}
	}
	pool := snapshot.NewPool(snapshot.Settings{
		Size:        config.SnapshotPoolSize,
		Template:    config.SnapshotTemplate,
		Provisioner: provisioner,
	})
	if err := pool.EnsureWarmCapacity(ctx); err != nil {
		return nil, err
	}
	metrics := pool.Metrics()
	slog.Info("snapshot pool initialised", "warm", metrics.Warm, "target", metrics.Target)

	run, err := runner.New(config.CacheRoot)
	if err != nil {
		return nil, err
	}

	return &Supervisor{
		client: client,
		config: config,
		pool:   pool,
		runner: run,
	}, nil
}

// Run polls until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	slog.Info("supervisor started", "max_concurrency", s.config.MaxConcurrency)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		if err := s.ProcessPendingTasks(ctx); err != nil {
			slog.Warn("supervisor cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received")
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessPendingTasks runs one poll cycle: list pending tasks, filter by the
// configured environment, and fan out bounded by MaxConcurrency.
func (s *Supervisor) ProcessPendingTasks(ctx context.Context) error {
	tasks, err := s.client.ListTasks(ctx, "pending")
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		slog.Info("no pending tasks found")
		return nil
	}

	toExecute := tasks[:0]
	for _, t := range tasks {
		if s.shouldExecute(t) {
			toExecute = append(toExecute, t)
		}
	}
	if len(toExecute) == 0 {
		slog.Info("no pending tasks matched configured filters")
		return nil
	}

	sem := make(chan struct{}, s.config.MaxConcurrency)
	var wg sync.WaitGroup
	for _, t := range toExecute {
		wg.Add(1)
		sem <- struct{}{}
		go func(t api.TaskSummary) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.executeTask(ctx, t); err != nil {
				slog.Warn("failed to execute task", "task_id", t.ID, "title", t.Title, "error", err)
				return
			}
			slog.Info("task completed", "task_id", t.ID, "title", t.Title)
		}(t)
	}
	wg.Wait()

	return nil
}

func (s *Supervisor) shouldExecute(t api.TaskSummary) bool {
	if s.config.EnvironmentID == "" {
		return true
	}
	return t.EnvironmentID != nil && *t.EnvironmentID == s.config.EnvironmentID
}

func (s *Supervisor) executeTask(ctx context.Context, t api.TaskSummary) error {
	slog.Info("attempting to claim task", "task_id", t.ID, "title", t.Title)

	rc, ok, err := s.startAttempt(ctx, t)
	if err != nil || !ok {
		return err
	}

	artifacts, err := s.runAttempt(ctx, rc)
	if err != nil {
		slog.Warn("attempt execution failed",
			"task_id", rc.Task.ID, "attempt_id", rc.Attempt.ID, "error", err)
		s.failAttempt(ctx, rc, err)
		return err
	}

	return s.client.CompleteAttempt(ctx, rc.Attempt.ID, api.Outcome{
		Status: "succeeded",
		Diff:   artifacts.Diff,
		Log:    artifacts.Log,
	})
}

// startAttempt claims the task and opens an attempt. A Conflict on either
// step means another worker won; a Forbidden means a stale assignment.
// Both return ok=false without error. The detail fetch is best effort.
func (s *Supervisor) startAttempt(ctx context.Context, t api.TaskSummary) (runner.Context, bool, error) {
	if _, err := s.client.Claim(ctx, t.ID); err != nil {
		if errors.Is(err, api.ErrConflict) {
			slog.Info("task already claimed by another worker", "task_id", t.ID)
			return runner.Context{}, false, nil
		}
		return runner.Context{}, false, err
	}

	environmentID := t.EnvironmentID
	if environmentID == nil && s.config.EnvironmentID != "" {
		id := s.config.EnvironmentID
		environmentID = &id
	}

	attempt, err := s.client.StartAttempt(ctx, t.ID, environmentID)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrForbidden):
			slog.Info("current user is not the assignee, skipping", "task_id", t.ID)
			return runner.Context{}, false, nil
		case errors.Is(err, api.ErrConflict):
			slog.Info("attempt already running for task", "task_id", t.ID)
			return runner.Context{}, false, nil
		}
		return runner.Context{}, false, err
	}
	slog.Info("attempt started", "attempt_id", attempt.ID, "task_id", t.ID)

	rc := runner.Context{Task: t, Attempt: attempt}
	if detail, err := s.client.FetchDetail(ctx, t.ID); err != nil {
		slog.Warn("failed to fetch task detail", "task_id", t.ID, "error", err)
	} else {
		rc.Detail = &detail
	}

	return rc, true, nil
}

// runAttempt executes under a snapshot lease: the lease is recycled on
// success and discarded on failure so a bad snapshot is never reused.
func (s *Supervisor) runAttempt(ctx context.Context, rc runner.Context) (runner.Artifacts, error) {
	lease, err := s.pool.Checkout(ctx)
	if err != nil {
		return runner.Artifacts{}, err
	}

	artifacts, err := s.runner.Execute(rc, lease)
	if err != nil {
		s.pool.Discard(lease)
		return runner.Artifacts{}, err
	}
	s.pool.Recycle(lease)
	return artifacts, nil
}

func (s *Supervisor) failAttempt(ctx context.Context, rc runner.Context, execErr error) {
	log := runner.FailureLog(rc.Attempt.ID, rc.Task.ID, execErr)
	err := s.client.CompleteAttempt(ctx, rc.Attempt.ID, api.Outcome{
		Status: "failed",
		Log:    &log,
	})
	if err != nil {
		slog.Warn("failed to report attempt failure",
			"task_id", rc.Task.ID, "attempt_id", rc.Attempt.ID, "error", err)
	}
}
