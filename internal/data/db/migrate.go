package db

import (
	types "github.com/mosaicry/mosaicry-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// Shared reference dimensions
		&types.Category{},
		&types.Group{},
		&types.Tag{},

		// Published content
		&types.Atom{},
		&types.AtomFieldConfig{},
		&types.AtomTag{},

		// Generation pipeline
		&types.GenerationRecord{},
		&types.GenerationItem{},
	)
}

func (s *PostgresService) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}
