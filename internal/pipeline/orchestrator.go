package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mosaicry/mosaicry-backend/internal/data/repos"
	types "github.com/mosaicry/mosaicry-backend/internal/domain"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/dbctx"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
	"github.com/mosaicry/mosaicry-backend/internal/platform/envutil"
	"github.com/mosaicry/mosaicry-backend/internal/platform/gcp"
	"github.com/mosaicry/mosaicry-backend/internal/platform/replicate"
)

// submissionLanguage scopes prediction submission to one representative item
// per record; other-language items reuse the same image at materialization.
const submissionLanguage = "en"

type Uploader interface {
	UploadFromURL(ctx context.Context, sourceURL, key string) (string, error)
}

var _ Uploader = (gcp.BucketService)(nil)

// Orchestrator advances generation records through claim, submit, poll and
// materialize. Every step is resumable: state lives only in the record store,
// so an interrupted tick is picked up again by the next one.
type Orchestrator struct {
	db  *gorm.DB
	log *logger.Logger

	records      repos.GenerationRecordRepo
	items        repos.GenerationItemRepo
	atoms        repos.AtomRepo
	fieldConfigs repos.AtomFieldConfigRepo
	atomTags     repos.AtomTagRepo
	categories   repos.CategoryRepo
	groups       repos.GroupRepo

	prediction replicate.Client
	uploader   Uploader

	submitBatch      int
	materializeBatch int
	// Materialization performs several dependent writes; its transactions get
	// a longer deadline than the store default.
	txTimeout time.Duration
}

func NewOrchestrator(
	db *gorm.DB,
	baseLog *logger.Logger,
	records repos.GenerationRecordRepo,
	items repos.GenerationItemRepo,
	atoms repos.AtomRepo,
	fieldConfigs repos.AtomFieldConfigRepo,
	atomTags repos.AtomTagRepo,
	categories repos.CategoryRepo,
	groups repos.GroupRepo,
	prediction replicate.Client,
	uploader Uploader,
) (*Orchestrator, error) {
	if prediction == nil {
		return nil, fmt.Errorf("prediction client required")
	}
	if uploader == nil {
		return nil, fmt.Errorf("uploader required")
	}
	return &Orchestrator{
		db:               db,
		log:              baseLog.With("component", "GenerationOrchestrator"),
		records:          records,
		items:            items,
		atoms:            atoms,
		fieldConfigs:     fieldConfigs,
		atomTags:         atomTags,
		categories:       categories,
		groups:           groups,
		prediction:       prediction,
		uploader:         uploader,
		submitBatch:      envutil.Int("PIPELINE_SUBMIT_BATCH", 5),
		materializeBatch: envutil.Int("PIPELINE_MATERIALIZE_BATCH", 10),
		txTimeout:        envutil.Duration("PIPELINE_TX_TIMEOUT", 60*time.Second),
	}, nil
}

// RunTick executes one full pass: submission, polling, materialization.
// Per-record and per-item faults are logged and isolated; a tick never
// propagates an error to its caller.
func (o *Orchestrator) RunTick(ctx context.Context) {
	o.runSubmissions(ctx)
	o.runPolling(ctx)
	o.runMaterializations(ctx)
}

func (o *Orchestrator) runSubmissions(ctx context.Context) {
	dbc := dbctx.Context{Ctx: ctx}
	batch, err := o.records.ListByStatus(dbc, types.GenerationStatusNotStarted, o.submitBatch)
	if err != nil {
		o.log.Error("Submission phase: select failed", "error", err)
		return
	}
	for _, record := range batch {
		if err := o.submitRecord(ctx, record); err != nil {
			o.log.Error("Submission failed", "record_id", record.ID, "error", err)
		}
	}
}

func (o *Orchestrator) submitRecord(ctx context.Context, record *types.GenerationRecord) error {
	// Claim: re-read under the transaction so a concurrent claim loses cleanly.
	claimed := false
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		current, err := o.records.GetByID(dbc, record.ID)
		if err != nil {
			return err
		}
		if current == nil || current.Status != types.GenerationStatusNotStarted {
			return nil
		}
		claimed = true
		return o.records.UpdateFields(dbc, record.ID, map[string]interface{}{
			"status": types.GenerationStatusInProgress,
		})
	})
	if err != nil {
		return fmt.Errorf("claim record: %w", err)
	}
	if !claimed {
		return nil
	}

	item, err := o.items.FirstPending(dbctx.Context{Ctx: ctx}, record.ID, submissionLanguage)
	if err != nil {
		return fmt.Errorf("find pending item: %w", err)
	}
	if item == nil {
		o.markRecordFailed(ctx, record.ID, "no eligible item for submission")
		return fmt.Errorf("no eligible %s item", submissionLanguage)
	}

	pred, err := o.prediction.Submit(ctx, replicate.PredictionInput{
		Prompt:          item.Content,
		AspectRatio:     "1:1",
		NumOutputs:      1,
		PromptOptimizer: true,
	})
	if err != nil {
		o.markItemFailed(ctx, item.ID)
		o.markRecordFailed(ctx, record.ID, err.Error())
		return fmt.Errorf("submit prediction: %w", err)
	}

	err = o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := o.items.UpdateFields(dbc, item.ID, map[string]interface{}{
			"status": types.GenerationStatusInProgress,
		}); err != nil {
			return err
		}
		return o.records.UpdateFields(dbc, record.ID, map[string]interface{}{
			"prediction_id": pred.ID,
		})
	})
	if err != nil {
		return fmt.Errorf("persist prediction id: %w", err)
	}

	o.log.Info("Prediction submitted", "record_id", record.ID, "prediction_id", pred.ID)
	return nil
}

func (o *Orchestrator) runPolling(ctx context.Context) {
	batch, err := o.records.ListPollable(dbctx.Context{Ctx: ctx})
	if err != nil {
		o.log.Error("Polling phase: select failed", "error", err)
		return
	}
	for _, record := range batch {
		if err := o.pollRecord(ctx, record); err != nil {
			o.log.Error("Polling failed", "record_id", record.ID, "error", err)
		}
	}
}

func (o *Orchestrator) pollRecord(ctx context.Context, record *types.GenerationRecord) error {
	pred, err := o.prediction.Get(ctx, *record.PredictionID)
	if err != nil {
		return fmt.Errorf("poll prediction: %w", err)
	}

	switch pred.Status {
	case replicate.StatusSucceeded:
		return o.completeRecord(ctx, record, pred)
	case replicate.StatusFailed, replicate.StatusCanceled:
		return o.failRecord(ctx, record, pred)
	default:
		// starting/processing: leave the record eligible for the next tick.
		return nil
	}
}

// completeRecord re-hosts the output image, then applies all completion writes
// in one short transaction. The upload happens strictly before the transaction
// opens: an unbounded external wait must never hold a database transaction.
func (o *Orchestrator) completeRecord(ctx context.Context, record *types.GenerationRecord, pred *replicate.Prediction) error {
	imagePath := ""
	if outputURL := pred.FirstOutput(); outputURL != "" {
		key := fmt.Sprintf("ai-generated/%s/%s", record.ID, imageFileName(outputURL))
		uploaded, err := o.uploader.UploadFromURL(ctx, outputURL, key)
		if err != nil {
			o.markRecordFailed(ctx, record.ID, fmt.Sprintf("image upload: %v", err))
			return fmt.Errorf("upload image: %w", err)
		}
		imagePath = uploaded
	}

	result := types.GenerationResult{Status: pred.Status, Error: pred.Error}
	if imagePath != "" {
		output := types.GenerationOutputGenerated
		result.Output = &output
	}
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		itemUpdates := map[string]interface{}{
			"status": types.GenerationStatusCompleted,
		}
		if imagePath != "" {
			itemUpdates["image"] = imagePath
		}
		if err := o.items.UpdateFieldsByRecord(dbc, record.ID, itemUpdates); err != nil {
			return err
		}
		return o.records.UpdateFields(dbc, record.ID, map[string]interface{}{
			"status":        types.GenerationStatusCompleted,
			"result":        datatypes.JSON(blob),
			"prediction_id": nil,
		})
	})
}

func (o *Orchestrator) failRecord(ctx context.Context, record *types.GenerationRecord, pred *replicate.Prediction) error {
	blob, err := json.Marshal(types.GenerationResult{Status: pred.Status, Error: pred.Error})
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := o.items.UpdateFieldsByRecord(dbc, record.ID, map[string]interface{}{
			"status": types.GenerationStatusFailed,
		}); err != nil {
			return err
		}
		return o.records.UpdateFields(dbc, record.ID, map[string]interface{}{
			"status":        types.GenerationStatusFailed,
			"result":        datatypes.JSON(blob),
			"prediction_id": nil,
		})
	})
}

func (o *Orchestrator) runMaterializations(ctx context.Context) {
	batch, err := o.items.ListMaterializable(dbctx.Context{Ctx: ctx}, o.materializeBatch)
	if err != nil {
		o.log.Error("Materialization phase: select failed", "error", err)
		return
	}
	for _, item := range batch {
		// A failed item keeps atom_id null and is simply retried next tick.
		if err := o.materializeItem(ctx, item); err != nil {
			o.log.Error("Materialization failed, will retry",
				"item_id", item.ID,
				"record_id", item.RecordID,
				"error", err,
			)
		}
	}
}

func (o *Orchestrator) materializeItem(ctx context.Context, item *types.GenerationItem) error {
	if item.Image == nil || *item.Image == "" {
		return fmt.Errorf("item has no image result")
	}

	txCtx, cancel := context.WithTimeout(ctx, o.txTimeout)
	defer cancel()

	return o.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: txCtx, Tx: tx}

		current, err := o.items.GetByID(dbc, item.ID)
		if err != nil {
			return err
		}
		if current == nil || current.AtomID != nil {
			// Already materialized by an earlier tick.
			return nil
		}

		record, err := o.records.GetByID(dbc, item.RecordID)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("record %s not found", item.RecordID)
		}

		category, err := o.categories.GetByID(dbc, item.CategoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return fmt.Errorf("category %s not found", item.CategoryID)
		}
		group, err := o.groups.GetByID(dbc, item.GroupID)
		if err != nil {
			return err
		}
		if group == nil {
			return fmt.Errorf("group %s not found", item.GroupID)
		}

		atom := &types.Atom{
			ID:         uuid.New(),
			UserID:     record.UserID,
			CategoryID: item.CategoryID,
			GroupID:    item.GroupID,
			Language:   item.Language,
			Title:      item.Title,
			Content:    item.Content,
			Image:      *item.Image,
			Status:     types.AtomStatusPublished,
		}
		if _, err := o.atoms.Create(dbc, atom); err != nil {
			return fmt.Errorf("create atom: %w", err)
		}

		tagIDs, err := decodeTagIDs(item.TagIDs)
		if err != nil {
			return fmt.Errorf("decode tag ids: %w", err)
		}
		links := make([]*types.AtomTag, 0, len(tagIDs))
		for _, tagID := range tagIDs {
			links = append(links, &types.AtomTag{ID: uuid.New(), AtomID: atom.ID, TagID: tagID})
		}
		if err := o.atomTags.CreateMany(dbc, links); err != nil {
			return fmt.Errorf("create tag links: %w", err)
		}

		if err := o.fieldConfigs.CreateMany(dbc, buildFieldConfigs(atom.ID)); err != nil {
			return fmt.Errorf("create field configs: %w", err)
		}

		if err := o.items.UpdateFields(dbc, item.ID, map[string]interface{}{
			"atom_id": atom.ID,
		}); err != nil {
			return fmt.Errorf("set atom id: %w", err)
		}

		o.log.Info("Atom materialized", "item_id", item.ID, "atom_id", atom.ID)
		return nil
	})
}

// markRecordFailed applies a terminal failure to a record in its own
// transaction, re-reading state first so completed records are never clobbered.
func (o *Orchestrator) markRecordFailed(ctx context.Context, recordID uuid.UUID, message string) {
	blob, _ := json.Marshal(types.GenerationResult{Status: types.GenerationStatusFailed, Error: message})
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		current, err := o.records.GetByID(dbc, recordID)
		if err != nil {
			return err
		}
		if current == nil || current.Status == types.GenerationStatusCompleted {
			return nil
		}
		return o.records.UpdateFields(dbc, recordID, map[string]interface{}{
			"status":        types.GenerationStatusFailed,
			"result":        datatypes.JSON(blob),
			"prediction_id": nil,
		})
	})
	if err != nil {
		o.log.Error("Failed to mark record failed", "record_id", recordID, "error", err)
	}
}

func (o *Orchestrator) markItemFailed(ctx context.Context, itemID uuid.UUID) {
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		current, err := o.items.GetByID(dbc, itemID)
		if err != nil {
			return err
		}
		if current == nil || current.Status == types.GenerationStatusCompleted {
			return nil
		}
		return o.items.UpdateFields(dbc, itemID, map[string]interface{}{
			"status": types.GenerationStatusFailed,
		})
	})
	if err != nil {
		o.log.Error("Failed to mark item failed", "item_id", itemID, "error", err)
	}
}

func decodeTagIDs(raw datatypes.JSON) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// imageFileName extracts a stable object file name from the provider's output
// URL, falling back to a fixed name for unparseable URLs.
func imageFileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "output.png"
	}
	return path.Base(u.Path)
}
