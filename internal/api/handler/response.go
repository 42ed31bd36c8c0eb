package handler

import (
	"time"

	"github.com/gin-gonic/gin"
)

// respondSuccess writes the standard success envelope. message may be empty.
func respondSuccess(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{
		"success":     true,
		"status_code": status,
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// respondError writes the standard failure envelope
func respondError(c *gin.Context, status int, message, detail string) {
	c.JSON(status, gin.H{
		"success":     false,
		"message":     message,
		"error":       detail,
		"status_code": status,
	})
}

func respondValidationError(c *gin.Context, errors map[string][]string) {
	c.JSON(422, gin.H{
		"success":     false,
		"message":     "Validation failed",
		"errors":      errors,
		"status_code": 422,
	})
}
