package app

import (
	"github.com/mosaicry/mosaicry-backend/internal/http/handlers"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Pipeline   *handlers.PipelineHandler
	Generation *handlers.GenerationHandler
}

func wireHandlers(log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     handlers.NewHealthHandler(),
		Pipeline:   handlers.NewPipelineHandler(s.Scheduler),
		Generation: handlers.NewGenerationHandler(s.Intake),
	}
}
