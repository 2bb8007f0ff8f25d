package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/cloudtask/internal/domain/event"
	portartifact "github.com/alanyang/cloudtask/internal/port/artifact"
	porteventbus "github.com/alanyang/cloudtask/internal/port/eventbus"
	authsvc "github.com/alanyang/cloudtask/internal/service/auth"
	envsvc "github.com/alanyang/cloudtask/internal/service/environment"
	reposvc "github.com/alanyang/cloudtask/internal/service/repository"
	tasksvc "github.com/alanyang/cloudtask/internal/service/task"

	artifacthandler "github.com/alanyang/cloudtask/internal/transport/artifact"
	authhandler "github.com/alanyang/cloudtask/internal/transport/auth"
	envhandler "github.com/alanyang/cloudtask/internal/transport/environment"
	"github.com/alanyang/cloudtask/internal/transport/middleware"
	repohandler "github.com/alanyang/cloudtask/internal/transport/repository"
	taskhandler "github.com/alanyang/cloudtask/internal/transport/task"
	wshandler "github.com/alanyang/cloudtask/internal/transport/ws"
)

// NewRouter assembles the HTTP surface: open auth and artifact routes, bearer
// protected resource routes, and the websocket event feed.
func NewRouter(
	ctx context.Context,
	authSvc *authsvc.Service,
	repoSvc *reposvc.Service,
	envSvc *envsvc.Service,
	taskSvc *tasksvc.Service,
	artifacts portartifact.Store,
	eventBus porteventbus.EventBus,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authhandler.Register(r.Group("/auth"), authSvc)
	artifacthandler.Register(r.Group("/artifacts"), artifacts)

	protected := r.Group("/", middleware.RequireAuth(authSvc))
	repohandler.Register(protected.Group("/repositories"), repoSvc)
	envhandler.Register(protected.Group("/environments"), envSvc)
	taskhandler.Register(protected.Group("/tasks"), taskSvc)

	hub := wshandler.NewHub()
	hub.Register(r.Group("/ws"))

	// The websocket feed rides the task NOTIFY channel; one LISTEN
	// connection serves every connected client.
	if _, err := eventBus.Subscribe(ctx, event.ChannelTask, func(_ context.Context, e event.Event) {
		hub.Broadcast(e)
	}); err != nil {
		slog.Error("failed to subscribe task channel to WS hub", "error", err)
	}

	return r
}
