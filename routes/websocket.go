package routes

import (
	"tasknotes/tasknotes/middleware"
	"tasknotes/tasknotes/services"

	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes sets up the live update endpoint. The access
// token may be passed as ?token= because browsers cannot set headers on the
// upgrade request.
func RegisterWebSocketRoutes(group *gin.RouterGroup, authService services.AuthServiceInterface, wsService services.WebSocketServiceInterface) {
	group.GET("/ws", middleware.WebSocketAuthMiddleware(authService), wsService.HandleConnection)
}
