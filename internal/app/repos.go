package app

import (
	"gorm.io/gorm"

	"github.com/mosaicry/mosaicry-backend/internal/data/repos"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
)

type Repos struct {
	GenerationRecord repos.GenerationRecordRepo
	GenerationItem   repos.GenerationItemRepo
	Atom             repos.AtomRepo
	AtomFieldConfig  repos.AtomFieldConfigRepo
	AtomTag          repos.AtomTagRepo
	Category         repos.CategoryRepo
	Group            repos.GroupRepo
	Tag              repos.TagRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		GenerationRecord: repos.NewGenerationRecordRepo(db, log),
		GenerationItem:   repos.NewGenerationItemRepo(db, log),
		Atom:             repos.NewAtomRepo(db, log),
		AtomFieldConfig:  repos.NewAtomFieldConfigRepo(db, log),
		AtomTag:          repos.NewAtomTagRepo(db, log),
		Category:         repos.NewCategoryRepo(db, log),
		Group:            repos.NewGroupRepo(db, log),
		Tag:              repos.NewTagRepo(db, log),
	}
}
