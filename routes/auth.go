package routes

import (
	"errors"
	"net/http"

	"tasknotes/tasknotes/database"
	"tasknotes/tasknotes/middleware"
	"tasknotes/tasknotes/services"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func RegisterAuthRoutes(group *gin.RouterGroup, db *database.Database, authService services.AuthServiceInterface) {
	auth := group.Group("/auth")
	{
		auth.POST("/register/", func(c *gin.Context) { Register(c, db, authService) })
		auth.POST("/token/", func(c *gin.Context) { Login(c, db, authService) })
		auth.POST("/token/refresh/", func(c *gin.Context) { RefreshToken(c, db, authService) })
		auth.POST("/logout/", middleware.AuthMiddleware(authService), func(c *gin.Context) { Logout(c, db, authService) })
	}
}

func Register(c *gin.Context, db *database.Database, authService services.AuthServiceInterface) {
	var request registerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password required"})
		return
	}

	user, tokens, err := authService.Register(db, request.Username, request.Email, request.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
		},
		"tokens": gin.H{
			"refresh": tokens.Refresh,
			"access":  tokens.Access,
		},
	})
}

func Login(c *gin.Context, db *database.Database, authService services.AuthServiceInterface) {
	var request loginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password required"})
		return
	}

	tokens, err := authService.Login(db, request.Username, request.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

func RefreshToken(c *gin.Context, db *database.Database, authService services.AuthServiceInterface) {
	var request refreshRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token required"})
		return
	}

	tokens, err := authService.Refresh(db, request.Refresh)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Logout blacklists the caller's refresh token. Any token problem is a 400.
func Logout(c *gin.Context, db *database.Database, authService services.AuthServiceInterface) {
	var request refreshRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token required"})
		return
	}

	err := authService.Logout(db, currentUserID(c), request.Refresh)
	switch {
	case err == nil:
		c.JSON(http.StatusResetContent, gin.H{"message": "Logout successful"})
	case errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is invalid or expired"})
	default:
		respondError(c, err)
	}
}
