package app

import (
	"gorm.io/gorm"

	"github.com/mosaicry/mosaicry-backend/internal/pipeline"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
	"github.com/mosaicry/mosaicry-backend/internal/services"
)

type Services struct {
	Intake       services.GenerationIntakeService
	Orchestrator *pipeline.Orchestrator
	Scheduler    *pipeline.Scheduler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")

	intake := services.NewGenerationIntakeService(db, log, r.GenerationRecord, r.GenerationItem, r.Category, r.Group, r.Tag)

	orchestrator, err := pipeline.NewOrchestrator(
		db, log,
		r.GenerationRecord, r.GenerationItem,
		r.Atom, r.AtomFieldConfig, r.AtomTag,
		r.Category, r.Group,
		c.Prediction, c.Bucket,
	)
	if err != nil {
		return Services{}, err
	}

	scheduler := pipeline.NewScheduler(log, cfg.TickInterval, orchestrator.RunTick)

	return Services{
		Intake:       intake,
		Orchestrator: orchestrator,
		Scheduler:    scheduler,
	}, nil
}
