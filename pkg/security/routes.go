package security

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jason-KITIO/k.kits-sub004/internal/repository"
)

type LoginHandler struct {
	repo *repository.Repository
}

func NewLoginHandler(r *repository.Repository) *LoginHandler {
	return &LoginHandler{repo: r}
}

func (l *LoginHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/auth", l.Login)
}

func (l *LoginHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	user, err := AuthenticateUser(req.Username, req.Password, l.repo)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := GenerateJWT(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
