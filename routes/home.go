package routes

import (
	"log"
	"net/http"
	"time"

	"tasknotes/tasknotes/database"

	"github.com/gin-gonic/gin"
)

// RegisterHomeRoutes serves the endpoint index and the health check outside
// the API prefix.
func RegisterHomeRoutes(router *gin.Engine, db *database.Database, apiPrefix string) {
	router.GET("/", func(c *gin.Context) { Home(c, apiPrefix) })
	router.GET("/health", func(c *gin.Context) { Health(c, db) })
}

func Home(c *gin.Context, apiPrefix string) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the Tasks and Notes API",
		"endpoints": gin.H{
			"register":      apiPrefix + "/auth/register/",
			"token":         apiPrefix + "/auth/token/",
			"token_refresh": apiPrefix + "/auth/token/refresh/",
			"logout":        apiPrefix + "/auth/logout/",
			"tasks":         apiPrefix + "/tasks/",
			"notes":         apiPrefix + "/notes/",
			"websocket":     apiPrefix + "/ws",
		},
	})
}

func Health(c *gin.Context, db *database.Database) {
	if err := db.Ping(); err != nil {
		log.Printf("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"time":   time.Now().UTC(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
