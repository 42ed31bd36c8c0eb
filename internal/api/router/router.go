package router

import (
	"net/http"

	"github.com/cuongbtq/property-be/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(RecoveryMiddleware(deps.Logger))
	r.Use(CorrelationIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		if deps.DB != nil {
			if err := deps.DB.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": deps.ServiceName,
					"error":   err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": deps.ServiceName,
		})
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success":     false,
			"message":     "Endpoint not found",
			"error":       "The requested API endpoint does not exist",
			"status_code": http.StatusNotFound,
		})
	})

	propertyHandler := handler.NewPropertyHandler(deps)
	queueHandler := handler.NewQueueHandler(deps)

	v1 := r.Group("/api/v1")
	v1.Use(AgentContextMiddleware())
	{
		properties := v1.Group("/properties")
		{
			properties.GET("", propertyHandler.ListProperties)
			properties.POST("", propertyHandler.CreateProperty)
			properties.GET("/:id", propertyHandler.GetProperty)
			properties.PUT("/:id", propertyHandler.UpdateProperty)
			properties.PATCH("/:id", propertyHandler.UpdateProperty)
			properties.DELETE("/:id", propertyHandler.DeleteProperty)
		}

		v1.GET("/my-properties", propertyHandler.MyProperties)
		v1.POST("/test-email", propertyHandler.TestEmail)

		queue := v1.Group("/queue")
		{
			queue.GET("/health", queueHandler.Health)
			queue.GET("/stats", queueHandler.Stats)
			queue.GET("/failed", queueHandler.ListFailed)
			queue.POST("/failed/:id/retry", queueHandler.RetryFailed)
			queue.DELETE("/failed/:id", queueHandler.DeleteFailed)
		}
	}

	return r
}
