package app

import (
	"github.com/gin-gonic/gin"

	"github.com/mosaicry/mosaicry-backend/internal/server"
)

func wireRouter(h Handlers, m Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		HealthHandler:     h.Health,
		PipelineHandler:   h.Pipeline,
		GenerationHandler: h.Generation,
		AdminMiddleware:   m.Admin,
	})
}
