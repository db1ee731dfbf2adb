package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mosaicry/mosaicry-backend/internal/http/handlers"
	"github.com/mosaicry/mosaicry-backend/internal/http/middleware"
)

type RouterConfig struct {
	HealthHandler     *handlers.HealthHandler
	PipelineHandler   *handlers.PipelineHandler
	GenerationHandler *handlers.GenerationHandler
	AdminMiddleware   *middleware.AdminMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	// Admin
	admin := router.Group("/api/admin")
	admin.Use(cfg.AdminMiddleware.RequireAdmin())
	{
		admin.POST("/pipeline/start", cfg.PipelineHandler.Start)
		admin.POST("/pipeline/stop", cfg.PipelineHandler.Stop)
		admin.GET("/pipeline/status", cfg.PipelineHandler.Status)

		admin.POST("/generation/batches", cfg.GenerationHandler.CreateBatch)
		admin.GET("/generation/batches", cfg.GenerationHandler.ListBatches)
		admin.GET("/generation/batches/:id", cfg.GenerationHandler.GetBatch)
	}

	return router
}
