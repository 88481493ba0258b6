package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ResourceIDMiddleware rejects malformed :id parameters with 404, the same
// answer a missing or foreign resource gets, and stores the parsed id as
// resourceID.
func ResourceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found."})
			return
		}
		c.Set("resourceID", id)
		c.Next()
	}
}
