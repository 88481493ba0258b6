package middleware

import (
	"tasknotes/tasknotes/services"

	"github.com/gin-gonic/gin"
)

// WebSocketAuthMiddleware validates JWT tokens for WebSocket connections.
// Browsers cannot set headers on the upgrade request, so ?token= is
// accepted as well.
func WebSocketAuthMiddleware(authService services.AuthServiceInterface) gin.HandlerFunc {
	return authenticate(authService, true)
}
