package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	artifactstore "github.com/alanyang/cloudtask/internal/adapter/artifact"
	"github.com/alanyang/cloudtask/internal/adapter/memory"
	pgdb "github.com/alanyang/cloudtask/internal/adapter/postgres"
	pgenv "github.com/alanyang/cloudtask/internal/adapter/postgres/environment"
	pgeventbus "github.com/alanyang/cloudtask/internal/adapter/postgres/eventbus"
	pgrepo "github.com/alanyang/cloudtask/internal/adapter/postgres/repository"
	pgtask "github.com/alanyang/cloudtask/internal/adapter/postgres/task"
	pguser "github.com/alanyang/cloudtask/internal/adapter/postgres/user"

	authsvc "github.com/alanyang/cloudtask/internal/service/auth"
	envsvc "github.com/alanyang/cloudtask/internal/service/environment"
	reposvc "github.com/alanyang/cloudtask/internal/service/repository"
	tasksvc "github.com/alanyang/cloudtask/internal/service/task"

	"github.com/alanyang/cloudtask/internal/transport"
)

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	Pool   *pgxpool.Pool
	Server *http.Server
}

// Build is the composition root: the only place concrete types are wired to
// their interface dependencies.
func Build(ctx context.Context) (*App, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	pool, err := pgdb.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	artifactsDir := os.Getenv("ARTIFACTS_DIR")
	if artifactsDir == "" {
		artifactsDir = "artifacts"
	}
	artifactBaseURL := os.Getenv("ARTIFACT_BASE_URL")
	if artifactBaseURL == "" {
		artifactBaseURL = "/artifacts"
	}

	taskStore := pgtask.New(pool)
	repoStore := pgrepo.New(pool)
	envStore := pgenv.New(pool)
	userStore := pguser.New(pool)
	eventBus := pgeventbus.New(pool)
	sessionCache := memory.NewCache()

	artifacts, err := artifactstore.NewLocalStore(artifactsDir, artifactBaseURL)
	if err != nil {
		return nil, fmt.Errorf("initialising artifact store: %w", err)
	}

	authSvc := authsvc.NewService(userStore, sessionCache)
	repoSvc := reposvc.NewService(repoStore)
	envSvc := envsvc.NewService(envStore, repoStore)
	taskSvc := tasksvc.NewService(taskStore, repoStore, envStore, artifacts, eventBus)

	router := transport.NewRouter(ctx, authSvc, repoSvc, envSvc, taskSvc, artifacts, eventBus)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	slog.Info("application wired", "port", port, "artifacts_dir", artifactsDir)

	return &App{Pool: pool, Server: server}, nil
}
