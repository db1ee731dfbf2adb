package repos

import (
	"gorm.io/gorm"

	"github.com/mosaicry/mosaicry-backend/internal/data/repos/content"
	"github.com/mosaicry/mosaicry-backend/internal/data/repos/generation"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
)

type GenerationRecordRepo = generation.RecordRepo
type GenerationItemRepo = generation.ItemRepo

type AtomRepo = content.AtomRepo
type AtomFieldConfigRepo = content.AtomFieldConfigRepo
type AtomTagRepo = content.AtomTagRepo
type CategoryRepo = content.CategoryRepo
type GroupRepo = content.GroupRepo
type TagRepo = content.TagRepo

func NewGenerationRecordRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRecordRepo {
	return generation.NewRecordRepo(db, baseLog)
}
func NewGenerationItemRepo(db *gorm.DB, baseLog *logger.Logger) GenerationItemRepo {
	return generation.NewItemRepo(db, baseLog)
}

func NewAtomRepo(db *gorm.DB, baseLog *logger.Logger) AtomRepo {
	return content.NewAtomRepo(db, baseLog)
}
func NewAtomFieldConfigRepo(db *gorm.DB, baseLog *logger.Logger) AtomFieldConfigRepo {
	return content.NewAtomFieldConfigRepo(db, baseLog)
}
func NewAtomTagRepo(db *gorm.DB, baseLog *logger.Logger) AtomTagRepo {
	return content.NewAtomTagRepo(db, baseLog)
}
func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return content.NewCategoryRepo(db, baseLog)
}
func NewGroupRepo(db *gorm.DB, baseLog *logger.Logger) GroupRepo {
	return content.NewGroupRepo(db, baseLog)
}
func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo {
	return content.NewTagRepo(db, baseLog)
}
