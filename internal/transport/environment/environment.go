package environment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainenv "github.com/alanyang/cloudtask/internal/domain/environment"
	envsvc "github.com/alanyang/cloudtask/internal/service/environment"
)

func Register(rg *gin.RouterGroup, svc *envsvc.Service) {
	rg.POST("", createEnvironment(svc))
	rg.GET("/:id", getEnvironment(svc))
}

type createReq struct {
	ID           string    `json:"id" binding:"required"`
	Label        string    `json:"label"`
	RepositoryID uuid.UUID `json:"repository_id" binding:"required"`
	Branch       string    `json:"branch"`
	IsPinned     bool      `json:"is_pinned"`
}

func createEnvironment(svc *envsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		e, err := svc.Create(c.Request.Context(), domainenv.Environment{
			ID:           req.ID,
			Label:        req.Label,
			RepositoryID: req.RepositoryID,
			Branch:       req.Branch,
			IsPinned:     req.IsPinned,
		})
		if err != nil {
			switch {
			case errors.Is(err, envsvc.ErrDuplicate):
				c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
			case errors.Is(err, envsvc.ErrInvalid):
				c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			}
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

func getEnvironment(svc *envsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, envsvc.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, e)
	}
}
