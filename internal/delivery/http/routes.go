package http

import (
	"github.com/gin-gonic/gin"
	"github.com/worthit/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// Price endpoints, kept at the root for the existing frontend
	limited := router.Group("/", RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.PerIPBurst))
	{
		limited.GET("/compare", handler.Compare)
		limited.GET("/more", handler.More)
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/jobs", handler.Jobs)
	}

	return router
}
