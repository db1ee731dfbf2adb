package generation

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mosaicry/mosaicry-backend/internal/domain"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/dbctx"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
)

type ItemRepo interface {
	Create(dbc dbctx.Context, items []*types.GenerationItem) ([]*types.GenerationItem, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GenerationItem, error)
	ListByRecord(dbc dbctx.Context, recordID uuid.UUID) ([]*types.GenerationItem, error)
	// FirstPending returns the oldest not_started item of a record for the
	// given language, or nil when the record has none.
	FirstPending(dbc dbctx.Context, recordID uuid.UUID, language string) (*types.GenerationItem, error)
	// ListMaterializable returns completed items with an image result that
	// have not been turned into an atom yet.
	ListMaterializable(dbc dbctx.Context, limit int) ([]*types.GenerationItem, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsByRecord(dbc dbctx.Context, recordID uuid.UUID, updates map[string]interface{}) error
}

type itemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemRepo(db *gorm.DB, baseLog *logger.Logger) ItemRepo {
	return &itemRepo{
		db:  db,
		log: baseLog.With("repo", "GenerationItemRepo"),
	}
}

func (r *itemRepo) Create(dbc dbctx.Context, items []*types.GenerationItem) ([]*types.GenerationItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return []*types.GenerationItem{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GenerationItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var item types.GenerationItem
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepo) ListByRecord(dbc dbctx.Context, recordID uuid.UUID) ([]*types.GenerationItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GenerationItem
	if err := transaction.WithContext(dbc.Ctx).
		Where("record_id = ?", recordID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *itemRepo) FirstPending(dbc dbctx.Context, recordID uuid.UUID, language string) (*types.GenerationItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var item types.GenerationItem
	err := transaction.WithContext(dbc.Ctx).
		Where("record_id = ? AND language = ? AND status = ?", recordID, language, types.GenerationStatusNotStarted).
		Order("created_at ASC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepo) ListMaterializable(dbc dbctx.Context, limit int) ([]*types.GenerationItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GenerationItem
	q := transaction.WithContext(dbc.Ctx).
		Where("status = ? AND atom_id IS NULL AND image IS NOT NULL", types.GenerationStatusCompleted).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *itemRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.GenerationItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *itemRepo) UpdateFieldsByRecord(dbc dbctx.Context, recordID uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.GenerationItem{}).
		Where("record_id = ?", recordID).
		Updates(updates).Error
}
