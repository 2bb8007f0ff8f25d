package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanyang/cloudtask/internal/supervisor"
)

var config supervisor.Config

var rootCmd = &cobra.Command{
	Use:   "supervisor",
	Short: "Cloudtask worker supervisor",
	Long:  `Polls the cloudtask control plane for pending tasks, claims them and executes attempts against prewarmed snapshots.`,
	RunE:  runSupervisor,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&config.APIBase, "api-base",
		envString("CLOUDTASK_API_BASE", "http://127.0.0.1:8080"),
		"Base URL for the cloudtask API")
	flags.StringVar(&config.Email, "email",
		envString("CLOUDTASK_EMAIL", "supervisor@example.com"),
		"Email for the service account used to authenticate")
	flags.StringVar(&config.Password, "password",
		envString("CLOUDTASK_PASSWORD", "supervisor"),
		"Password for the service account used to authenticate")
	flags.DurationVar(&config.PollInterval, "poll-interval",
		envDuration("CLOUDTASK_POLL_INTERVAL", 5*time.Second),
		"Polling interval when waiting for new tasks")
	flags.StringVar(&config.EnvironmentID, "environment-id",
		os.Getenv("CLOUDTASK_ENVIRONMENT_ID"),
		"Only execute tasks tied to this environment")
	flags.IntVar(&config.MaxConcurrency, "max-concurrency",
		envInt("CLOUDTASK_MAX_CONCURRENCY", 1),
		"Maximum number of attempts to execute concurrently")
	flags.IntVar(&config.SnapshotPoolSize, "snapshot-pool-size",
		envInt("CLOUDTASK_SNAPSHOT_POOL_SIZE", 1),
		"Desired size of the prewarmed snapshot pool")
	flags.StringVar(&config.SnapshotTemplate, "snapshot-template",
		os.Getenv("CLOUDTASK_SNAPSHOT_TEMPLATE"),
		"Template identifier passed to snapshot hooks")
	flags.StringVar(&config.PrewarmHook, "prewarm-hook",
		os.Getenv("CLOUDTASK_PREWARM_HOOK"),
		"Path to a lifecycle hook executable that provisions snapshots")
	flags.StringVar(&config.CacheRoot, "cache-root",
		envString("CLOUDTASK_CACHE_ROOT", "/var/cache/cloudtask"),
		"Root directory used for dependency caches")
}

func runSupervisor(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sup, err := supervisor.New(ctx, config)
	if err != nil {
		return fmt.Errorf("initialise supervisor: %w", err)
	}

	return sup.Run(ctx)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("supervisor exited with error", "error", err)
		os.Exit(1)
	}
}
