package task

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domaintask "github.com/alanyang/cloudtask/internal/domain/task"
	tasksvc "github.com/alanyang/cloudtask/internal/service/task"
	"github.com/alanyang/cloudtask/internal/transport/middleware"
)

func Register(rg *gin.RouterGroup, svc *tasksvc.Service) {
	rg.POST("", createTask(svc))
	rg.GET("", listTasks(svc))
	rg.GET("/:id", getTask(svc))
	rg.POST("/:id/claim", claimTask(svc))
	rg.POST("/:id/attempts", startAttempt(svc))
	rg.POST("/attempts/:id/complete", completeAttempt(svc))
}

// respondError maps the claim protocol's sentinel errors onto HTTP statuses.
// Anything unmatched is a 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tasksvc.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tasksvc.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, tasksvc.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, tasksvc.ErrInvalid):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"detail": err.Error()})
}

type createTaskReq struct {
	Title         string    `json:"title" binding:"required"`
	Description   string    `json:"description"`
	RepositoryID  uuid.UUID `json:"repository_id" binding:"required"`
	EnvironmentID *string   `json:"environment_id"`
}

func createTask(svc *tasksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTaskReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		detail, err := svc.Create(c.Request.Context(), middleware.CallerID(c), req.Title, req.Description, req.RepositoryID, req.EnvironmentID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, detail)
	}
}

func listTasks(svc *tasksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters domaintask.ListFilters

		if v := c.Query("status"); v != "" {
			s := domaintask.Status(v)
			if !s.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid status filter"})
				return
			}
			filters.Status = &s
		}

		tasks, err := svc.List(c.Request.Context(), filters)
		if err != nil {
			respondError(c, err)
			return
		}
		if tasks == nil {
			tasks = []domaintask.Task{}
		}
		c.JSON(http.StatusOK, tasks)
	}
}

func getTask(svc *tasksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid task id"})
			return
		}

		detail, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

func claimTask(svc *tasksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid task id"})
			return
		}

		info, err := svc.Claim(c.Request.Context(), id, middleware.CallerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func startAttempt(svc *tasksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid task id"})
			return
		}

		attempt, err := svc.StartAttempt(c.Request.Context(), id, middleware.CallerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, attempt)
	}
}

type completeAttemptReq struct {
	Status domaintask.AttemptStatus `json:"status" binding:"required"`
	Diff   *string                  `json:"diff"`
	Log    *string                  `json:"log"`
}

func completeAttempt(svc *tasksvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid attempt id"})
			return
		}

		var req completeAttemptReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		result, err := svc.CompleteAttempt(c.Request.Context(), id, middleware.CallerID(c), tasksvc.Outcome{
			Status: req.Status,
			Diff:   req.Diff,
			Log:    req.Log,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
