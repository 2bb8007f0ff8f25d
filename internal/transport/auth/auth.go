package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authsvc "github.com/alanyang/cloudtask/internal/service/auth"
)

func Register(rg *gin.RouterGroup, svc *authsvc.Service) {
	rg.POST("/users", registerUser(svc))
	rg.POST("/session", createSession(svc))
}

type registerReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

func registerUser(svc *authsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		u, err := svc.Register(c.Request.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			switch {
			case errors.Is(err, authsvc.ErrDuplicateEmail):
				c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
			case errors.Is(err, authsvc.ErrInvalid):
				c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			}
			return
		}
		c.JSON(http.StatusCreated, u)
	}
}

type sessionReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func createSession(svc *authsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sessionReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		token, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, authsvc.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sessionResp{AccessToken: token, TokenType: "bearer"})
	}
}
