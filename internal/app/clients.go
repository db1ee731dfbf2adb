package app

import (
	"fmt"

	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
	"github.com/mosaicry/mosaicry-backend/internal/platform/gcp"
	"github.com/mosaicry/mosaicry-backend/internal/platform/replicate"
)

type Clients struct {
	Prediction replicate.Client
	Bucket     gcp.BucketService
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	prediction, err := replicate.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init replicate client: %w", err)
	}
	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket service: %w", err)
	}
	return Clients{Prediction: prediction, Bucket: bucket}, nil
}
