package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mosaicry/mosaicry-backend/internal/data/repos"
	types "github.com/mosaicry/mosaicry-backend/internal/domain"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/dbctx"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
)

// promptLanguage is the language whose item content becomes the image prompt.
// A batch without an item in this language would never be submittable.
const promptLanguage = "en"

// ErrBatchNotFound is returned by GetBatch for unknown record ids so handlers
// can branch with errors.Is instead of matching message text.
var ErrBatchNotFound = errors.New("generation batch not found")

type BatchItemInput struct {
	Language string   `json:"language"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Group    string   `json:"group"`
	Tags     []string `json:"tags"`
}

type CreateBatchInput struct {
	UserID uuid.UUID        `json:"user_id"`
	Items  []BatchItemInput `json:"items"`
}

type BatchView struct {
	Record *types.GenerationRecord `json:"record"`
	Items  []*types.GenerationItem `json:"items"`
}

// GenerationIntakeService creates generation batches for the pipeline to pick
// up and reads them back with their items.
type GenerationIntakeService interface {
	CreateBatch(dbc dbctx.Context, input CreateBatchInput) (*BatchView, error)
	GetBatch(dbc dbctx.Context, recordID uuid.UUID) (*BatchView, error)
	ListBatches(dbc dbctx.Context, status string, limit int) ([]*types.GenerationRecord, error)
}

type generationIntakeService struct {
	db         *gorm.DB
	log        *logger.Logger
	records    repos.GenerationRecordRepo
	items      repos.GenerationItemRepo
	categories repos.CategoryRepo
	groups     repos.GroupRepo
	tags       repos.TagRepo
}

func NewGenerationIntakeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	records repos.GenerationRecordRepo,
	items repos.GenerationItemRepo,
	categories repos.CategoryRepo,
	groups repos.GroupRepo,
	tags repos.TagRepo,
) GenerationIntakeService {
	return &generationIntakeService{
		db:         db,
		log:        baseLog.With("service", "GenerationIntakeService"),
		records:    records,
		items:      items,
		categories: categories,
		groups:     groups,
		tags:       tags,
	}
}

func (s *generationIntakeService) CreateBatch(dbc dbctx.Context, input CreateBatchInput) (*BatchView, error) {
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("batch needs at least one item")
	}
	hasPromptItem := false
	for i, item := range input.Items {
		if strings.TrimSpace(item.Language) == "" {
			return nil, fmt.Errorf("item %d: missing language", i)
		}
		if strings.TrimSpace(item.Title) == "" {
			return nil, fmt.Errorf("item %d: missing title", i)
		}
		if strings.TrimSpace(item.Content) == "" {
			return nil, fmt.Errorf("item %d: missing content", i)
		}
		if strings.TrimSpace(item.Category) == "" {
			return nil, fmt.Errorf("item %d: missing category", i)
		}
		if strings.TrimSpace(item.Group) == "" {
			return nil, fmt.Errorf("item %d: missing group", i)
		}
		if item.Language == promptLanguage {
			hasPromptItem = true
		}
	}
	if !hasPromptItem {
		return nil, fmt.Errorf("batch needs an %s item to build the prompt from", promptLanguage)
	}

	var view *BatchView
	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}

		record, err := s.records.Create(txc, &types.GenerationRecord{
			UserID: input.UserID,
			Status: types.GenerationStatusNotStarted,
		})
		if err != nil {
			return fmt.Errorf("create record: %w", err)
		}

		items := make([]*types.GenerationItem, 0, len(input.Items))
		for _, in := range input.Items {
			category, err := s.categories.FindOrCreate(txc, strings.TrimSpace(in.Category), in.Language)
			if err != nil {
				return fmt.Errorf("resolve category %q: %w", in.Category, err)
			}
			group, err := s.groups.FindOrCreate(txc, strings.TrimSpace(in.Group), in.Language)
			if err != nil {
				return fmt.Errorf("resolve group %q: %w", in.Group, err)
			}
			tagIDs := make([]uuid.UUID, 0, len(in.Tags))
			for _, name := range in.Tags {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				tag, err := s.tags.FindOrCreate(txc, name, in.Language)
				if err != nil {
					return fmt.Errorf("resolve tag %q: %w", name, err)
				}
				tagIDs = append(tagIDs, tag.ID)
			}
			blob, err := json.Marshal(tagIDs)
			if err != nil {
				return fmt.Errorf("marshal tag ids: %w", err)
			}
			items = append(items, &types.GenerationItem{
				RecordID:   record.ID,
				Language:   in.Language,
				Title:      strings.TrimSpace(in.Title),
				Content:    strings.TrimSpace(in.Content),
				CategoryID: category.ID,
				GroupID:    group.ID,
				TagIDs:     datatypes.JSON(blob),
				Status:     types.GenerationStatusNotStarted,
			})
		}

		created, err := s.items.Create(txc, items)
		if err != nil {
			return fmt.Errorf("create items: %w", err)
		}
		view = &BatchView{Record: record, Items: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Generation batch created",
		"record_id", view.Record.ID,
		"items", len(view.Items),
	)
	return view, nil
}

func (s *generationIntakeService) GetBatch(dbc dbctx.Context, recordID uuid.UUID) (*BatchView, error) {
	record, err := s.records.GetByID(dbc, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("record %s: %w", recordID, ErrBatchNotFound)
	}
	items, err := s.items.ListByRecord(dbc, recordID)
	if err != nil {
		return nil, err
	}
	return &BatchView{Record: record, Items: items}, nil
}

func (s *generationIntakeService) ListBatches(dbc dbctx.Context, status string, limit int) ([]*types.GenerationRecord, error) {
	if status == "" {
		return nil, fmt.Errorf("missing status")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.records.ListByStatus(dbc, status, limit)
}
