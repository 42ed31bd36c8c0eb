package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/property-be/internal/api/domain"
	"github.com/cuongbtq/property-be/internal/api/handler"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"
	AgentIDHeader       = "X-Agent-ID"
	AgentEmailHeader    = "X-Agent-Email"
	AgentNameHeader     = "X-Agent-Name"
)

// LoggerMiddleware logs HTTP requests with slog
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP Request",
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.String("ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
			slog.String("correlation_id", c.GetString(CorrelationIDHeader)),
			slog.Duration("latency", latency),
			slog.Int("body_size", c.Writer.Size()),
		)

		if len(c.Errors) > 0 {
			for _, e := range c.Errors {
				logger.Error("Request error",
					slog.String("error", e.Error()),
					slog.Uint64("type", uint64(e.Type)),
				)
			}
		}
	}
}

// CorrelationIDMiddleware reuses the caller's correlation id or mints one, and echoes it back
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(CorrelationIDHeader, id)
		c.Writer.Header().Set(CorrelationIDHeader, id)
		c.Next()
	}
}

// RecoveryMiddleware turns handler panics into a 500 envelope
func RecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered",
			slog.String("path", c.Request.URL.Path),
			slog.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success":     false,
			"message":     "Internal server error",
			"error":       "An unexpected error occurred",
			"status_code": http.StatusInternalServerError,
		})
	})
}

// AgentContextMiddleware resolves the calling agent from headers set by the upstream gateway
func AgentContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(AgentIDHeader)
		email := c.GetHeader(AgentEmailHeader)

		if _, err := uuid.Parse(id); err != nil || email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":     false,
				"message":     "Unauthenticated",
				"error":       "Authentication required",
				"status_code": http.StatusUnauthorized,
			})
			return
		}

		handler.SetAgent(c, domain.Agent{
			ID:    id,
			Email: email,
			Name:  c.GetHeader(AgentNameHeader),
		})
		c.Next()
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Correlation-ID, X-Agent-ID, X-Agent-Email, X-Agent-Name")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
