package content

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mosaicry/mosaicry-backend/internal/domain"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/dbctx"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
)

type AtomRepo interface {
	Create(dbc dbctx.Context, atom *types.Atom) (*types.Atom, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Atom, error)
}

type atomRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAtomRepo(db *gorm.DB, baseLog *logger.Logger) AtomRepo {
	return &atomRepo{
		db:  db,
		log: baseLog.With("repo", "AtomRepo"),
	}
}

func (r *atomRepo) Create(dbc dbctx.Context, atom *types.Atom) (*types.Atom, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(atom).Error; err != nil {
		return nil, err
	}
	return atom, nil
}

func (r *atomRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Atom, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var atom types.Atom
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&atom).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &atom, nil
}

type AtomFieldConfigRepo interface {
	CreateMany(dbc dbctx.Context, configs []*types.AtomFieldConfig) error
	ListByAtom(dbc dbctx.Context, atomID uuid.UUID) ([]*types.AtomFieldConfig, error)
}

type atomFieldConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAtomFieldConfigRepo(db *gorm.DB, baseLog *logger.Logger) AtomFieldConfigRepo {
	return &atomFieldConfigRepo{
		db:  db,
		log: baseLog.With("repo", "AtomFieldConfigRepo"),
	}
}

func (r *atomFieldConfigRepo) CreateMany(dbc dbctx.Context, configs []*types.AtomFieldConfig) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(configs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&configs).Error
}

func (r *atomFieldConfigRepo) ListByAtom(dbc dbctx.Context, atomID uuid.UUID) ([]*types.AtomFieldConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AtomFieldConfig
	if err := transaction.WithContext(dbc.Ctx).
		Where("atom_id = ?", atomID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type AtomTagRepo interface {
	CreateMany(dbc dbctx.Context, links []*types.AtomTag) error
	ListByAtom(dbc dbctx.Context, atomID uuid.UUID) ([]*types.AtomTag, error)
}

type atomTagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAtomTagRepo(db *gorm.DB, baseLog *logger.Logger) AtomTagRepo {
	return &atomTagRepo{
		db:  db,
		log: baseLog.With("repo", "AtomTagRepo"),
	}
}

func (r *atomTagRepo) CreateMany(dbc dbctx.Context, links []*types.AtomTag) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(links) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&links).Error
}

func (r *atomTagRepo) ListByAtom(dbc dbctx.Context, atomID uuid.UUID) ([]*types.AtomTag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AtomTag
	if err := transaction.WithContext(dbc.Ctx).
		Where("atom_id = ?", atomID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
