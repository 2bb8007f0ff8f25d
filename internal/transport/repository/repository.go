package repository

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainrepo "github.com/alanyang/cloudtask/internal/domain/repository"
	reposvc "github.com/alanyang/cloudtask/internal/service/repository"
)

func Register(rg *gin.RouterGroup, svc *reposvc.Service) {
	rg.POST("", createRepository(svc))
	rg.GET("", listRepositories(svc))
}

type createReq struct {
	Name          string `json:"name" binding:"required"`
	GitURL        string `json:"git_url" binding:"required"`
	DefaultBranch string `json:"default_branch"`
}

func createRepository(svc *reposvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		r, err := svc.Create(c.Request.Context(), req.Name, req.GitURL, req.DefaultBranch)
		if err != nil {
			switch {
			case errors.Is(err, reposvc.ErrDuplicate):
				c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
			case errors.Is(err, reposvc.ErrInvalid):
				c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			}
			return
		}
		c.JSON(http.StatusCreated, r)
	}
}

func listRepositories(svc *reposvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		repos, err := svc.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}
		if repos == nil {
			repos = []domainrepo.Repository{}
		}
		c.JSON(http.StatusOK, repos)
	}
}
