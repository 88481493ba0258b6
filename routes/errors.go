package routes

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"tasknotes/tasknotes/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps service errors onto status codes. Unexpected errors are
// logged and reported without detail.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": detail(err, services.ErrValidation)})
	case errors.Is(err, services.ErrResourceExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": detail(err, services.ErrResourceExists)})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": detail(err, services.ErrInvalidInput)})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No active account found with the given credentials"})
	case errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is invalid or expired"})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrNoteNotFound),
		errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
	default:
		log.Printf("Unexpected error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// detail strips the sentinel prefix from a wrapped error message.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

// currentUserID returns the authenticated user, or uuid.Nil when the
// request is anonymous.
func currentUserID(c *gin.Context) uuid.UUID {
	value, exists := c.Get("userID")
	if !exists {
		return uuid.Nil
	}
	userID, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}

// resourceID returns the :id parsed by ResourceIDMiddleware in canonical
// form, falling back to the raw path parameter.
func resourceID(c *gin.Context) string {
	if id, ok := c.Get("resourceID"); ok {
		if parsed, ok := id.(uuid.UUID); ok {
			return parsed.String()
		}
	}
	return c.Param("id")
}
