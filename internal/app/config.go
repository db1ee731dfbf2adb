package app

import (
	"time"

	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
	"github.com/mosaicry/mosaicry-backend/internal/platform/envutil"
)

type Config struct {
	AdminAPIToken string
	TickInterval  time.Duration
	Port          string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		AdminAPIToken: envutil.String("ADMIN_API_TOKEN", ""),
		TickInterval:  envutil.Duration("PIPELINE_TICK_INTERVAL", 60*time.Second),
		Port:          envutil.String("PORT", "8080"),
	}
	if cfg.AdminAPIToken == "" {
		log.Warn("ADMIN_API_TOKEN not set, admin surface is disabled")
	}
	return cfg
}
