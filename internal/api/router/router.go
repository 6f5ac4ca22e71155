package router

import (
	"net/http"

	"github.com/cuongbtq/clipsight-be/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "clipsight-api",
			"store":   deps.StoreBackend,
		})
	})

	processHandler := handler.NewProcessHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/process - Submit a video processing job
		v1.POST("/process", processHandler.ProcessVideo)

		// GET /api/v1/status/:job_id - Poll job status
		v1.GET("/status/:job_id", processHandler.GetStatus)

		// GET /api/v1/result/:job_id - Fetch the completed result
		v1.GET("/result/:job_id", processHandler.GetResult)
	}

	return r
}
