package generation

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mosaicry/mosaicry-backend/internal/domain"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/dbctx"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
)

type RecordRepo interface {
	Create(dbc dbctx.Context, record *types.GenerationRecord) (*types.GenerationRecord, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GenerationRecord, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.GenerationRecord, error)
	// ListPollable returns in_progress records that carry a prediction id,
	// oldest first.
	ListPollable(dbc dbctx.Context) ([]*types.GenerationRecord, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return &recordRepo{
		db:  db,
		log: baseLog.With("repo", "GenerationRecordRepo"),
	}
}

func (r *recordRepo) Create(dbc dbctx.Context, record *types.GenerationRecord) (*types.GenerationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *recordRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GenerationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var record types.GenerationRecord
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *recordRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.GenerationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GenerationRecord
	q := transaction.WithContext(dbc.Ctx).
		Where("status = ?", status).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recordRepo) ListPollable(dbc dbctx.Context) ([]*types.GenerationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GenerationRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ? AND prediction_id IS NOT NULL", types.GenerationStatusInProgress).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recordRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.GenerationRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}
