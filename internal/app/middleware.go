package app

import (
	"github.com/mosaicry/mosaicry-backend/internal/http/middleware"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
)

type Middleware struct {
	Admin *middleware.AdminMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Admin: middleware.NewAdminMiddleware(log, cfg.AdminAPIToken),
	}
}
