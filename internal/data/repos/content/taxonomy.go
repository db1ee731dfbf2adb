package content

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mosaicry/mosaicry-backend/internal/domain"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/dbctx"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
)

type CategoryRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Category, error)
	FindOrCreate(dbc dbctx.Context, name, language string) (*types.Category, error)
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return &categoryRepo{
		db:  db,
		log: baseLog.With("repo", "CategoryRepo"),
	}
}

func (r *categoryRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Category, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var category types.Category
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) FindOrCreate(dbc dbctx.Context, name, language string) (*types.Category, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var category types.Category
	err := transaction.WithContext(dbc.Ctx).
		Where(types.Category{Name: name, Language: language}).
		FirstOrCreate(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

type GroupRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Group, error)
	FindOrCreate(dbc dbctx.Context, name, language string) (*types.Group, error)
}

type groupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGroupRepo(db *gorm.DB, baseLog *logger.Logger) GroupRepo {
	return &groupRepo{
		db:  db,
		log: baseLog.With("repo", "GroupRepo"),
	}
}

func (r *groupRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Group, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var group types.Group
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepo) FindOrCreate(dbc dbctx.Context, name, language string) (*types.Group, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var group types.Group
	err := transaction.WithContext(dbc.Ctx).
		Where(types.Group{Name: name, Language: language}).
		FirstOrCreate(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

type TagRepo interface {
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Tag, error)
	FindOrCreate(dbc dbctx.Context, name, language string) (*types.Tag, error)
}

type tagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo {
	return &tagRepo{
		db:  db,
		log: baseLog.With("repo", "TagRepo"),
	}
}

func (r *tagRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Tag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Tag
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *tagRepo) FindOrCreate(dbc dbctx.Context, name, language string) (*types.Tag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var tag types.Tag
	err := transaction.WithContext(dbc.Ctx).
		Where(types.Tag{Name: name, Language: language}).
		FirstOrCreate(&tag).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}
