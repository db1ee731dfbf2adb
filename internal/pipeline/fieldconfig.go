package pipeline

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	types "github.com/mosaicry/mosaicry-backend/internal/domain"
)

const (
	tileCountMin = 3
	tileCountMax = 8
	jitterMin    = 0.05
	jitterMax    = 0.30
	seedMax      = 1_000_000
)

// buildFieldConfigs generates the rendering parameter rows for a new atom.
// Values are randomized per atom but internally consistent: tile_x and tile_y
// share a single draw, so every generated grid is square.
func buildFieldConfigs(atomID uuid.UUID) []*types.AtomFieldConfig {
	tiles := tileCountMin + rand.Intn(tileCountMax-tileCountMin+1)
	jitter := jitterMin + rand.Float64()*(jitterMax-jitterMin)
	seed := rand.Intn(seedMax)

	fields := []struct {
		name  string
		value string
	}{
		{"tile_x", fmt.Sprintf("%d", tiles)},
		{"tile_y", fmt.Sprintf("%d", tiles)},
		{"jitter", fmt.Sprintf("%.3f", jitter)},
		{"seed", fmt.Sprintf("%d", seed)},
		{"snap_tolerance", "12"},
		{"edge_color", "#1f2933"},
		{"background_color", "#f5f7fa"},
		{"rotation_enabled", "false"},
	}

	configs := make([]*types.AtomFieldConfig, 0, len(fields))
	for _, f := range fields {
		configs = append(configs, &types.AtomFieldConfig{
			ID:     uuid.New(),
			AtomID: atomID,
			Name:   f.name,
			Value:  f.value,
		})
	}
	return configs
}
