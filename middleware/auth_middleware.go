package middleware

import (
	"net/http"

	"tasknotes/tasknotes/services"
	"tasknotes/tasknotes/utils/token"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware accepts a Bearer access token and stores the caller's
// identity in the context as userID and username.
func AuthMiddleware(authService services.AuthServiceInterface) gin.HandlerFunc {
	return authenticate(authService, false)
}

func authenticate(authService services.AuthServiceInterface, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := token.ExtractToken(c, allowQuery)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": token.ErrInvalidToken.Error()})
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("username", claims.Username)

		c.Next()
	}
}
