package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/mosaicry/mosaicry-backend/internal/domain"
	"github.com/mosaicry/mosaicry-backend/internal/platform/replicate"
)

func newTestOrchestrator(t *testing.T, store *memStore, pred replicate.Client, up Uploader) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(
		testDB(t),
		testLogger(t),
		&recordsFake{s: store},
		&itemsFake{s: store},
		&atomsFake{s: store},
		&fieldConfigsFake{s: store},
		&atomTagsFake{s: store},
		&categoriesFake{s: store},
		&groupsFake{s: store},
		pred,
		up,
	)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

func seedBatch(store *memStore, languages ...string) (*types.GenerationRecord, []*types.GenerationItem) {
	category := &types.Category{ID: uuid.New(), Name: "animals", Language: "en"}
	group := &types.Group{ID: uuid.New(), Name: "mammals", Language: "en"}
	store.categories[category.ID] = category
	store.groups[group.ID] = group

	record := &types.GenerationRecord{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: types.GenerationStatusNotStarted,
	}
	store.records = append(store.records, record)

	var items []*types.GenerationItem
	for _, lang := range languages {
		item := &types.GenerationItem{
			ID:         uuid.New(),
			RecordID:   record.ID,
			Language:   lang,
			Title:      "Sleeping cat",
			Content:    "a cat curled up on a windowsill",
			CategoryID: category.ID,
			GroupID:    group.ID,
			TagIDs:     datatypes.JSON(`[]`),
			Status:     types.GenerationStatusNotStarted,
		}
		store.items = append(store.items, item)
		items = append(items, item)
	}
	return record, items
}

func decodeResult(t *testing.T, record *types.GenerationRecord) types.GenerationResult {
	t.Helper()
	var result types.GenerationResult
	if err := json.Unmarshal(record.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	return result
}

// assertBoundedResult checks that the persisted blob carries nothing beyond
// the status, output indicator and error text.
func assertBoundedResult(t *testing.T, record *types.GenerationRecord) {
	t.Helper()
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(record.Result, &raw); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	for key := range raw {
		switch key {
		case "status", "output", "error":
		default:
			t.Fatalf("result carries unexpected field %q", key)
		}
	}
}

func TestOrchestratorFullLifecycle(t *testing.T) {
	store := newMemStore()
	record, items := seedBatch(store, "en", "zh")

	pred := &fakePrediction{
		submitResp: &replicate.Prediction{ID: "pred-42", Status: replicate.StatusStarting},
		getFunc: func(id string) (*replicate.Prediction, error) {
			return &replicate.Prediction{ID: id, Status: replicate.StatusProcessing}, nil
		},
	}
	up := &fakeUploader{}
	o := newTestOrchestrator(t, store, pred, up)
	ctx := context.Background()

	// Tick 1: the record is claimed and submitted.
	o.RunTick(ctx)
	if want, got := types.GenerationStatusInProgress, store.record(record.ID).Status; got != want {
		t.Fatalf("record status after submit: want=%q got=%q", want, got)
	}
	if store.record(record.ID).PredictionID == nil || *store.record(record.ID).PredictionID != "pred-42" {
		t.Fatalf("prediction id not persisted: %+v", store.record(record.ID).PredictionID)
	}
	if want, got := types.GenerationStatusInProgress, store.item(items[0].ID).Status; got != want {
		t.Fatalf("en item status after submit: want=%q got=%q", want, got)
	}
	if pred.submitCalls != 1 {
		t.Fatalf("submit calls: want=1 got=%d", pred.submitCalls)
	}

	// Tick 2: still processing, nothing changes and nothing is resubmitted.
	o.RunTick(ctx)
	if pred.submitCalls != 1 {
		t.Fatalf("resubmitted an in_progress record: calls=%d", pred.submitCalls)
	}
	if got := store.record(record.ID).Status; got != types.GenerationStatusInProgress {
		t.Fatalf("record status while processing: got=%q", got)
	}

	// Tick 3: succeeded. Upload, completion and materialization all land.
	pred.getFunc = func(id string) (*replicate.Prediction, error) {
		return &replicate.Prediction{
			ID:     id,
			Status: replicate.StatusSucceeded,
			Output: []string{"https://delivery.example.com/outputs/img.png"},
		}, nil
	}
	o.RunTick(ctx)

	if want, got := types.GenerationStatusCompleted, store.record(record.ID).Status; got != want {
		t.Fatalf("record status after success: want=%q got=%q", want, got)
	}
	wantKey := fmt.Sprintf("ai-generated/%s/img.png", record.ID)
	if len(up.keys) != 1 || up.keys[0] != wantKey {
		t.Fatalf("upload key: want=%q got=%v", wantKey, up.keys)
	}
	for _, item := range items {
		got := store.item(item.ID)
		if got.Status != types.GenerationStatusCompleted {
			t.Fatalf("item %s status: want=completed got=%q", item.Language, got.Status)
		}
		if got.Image == nil || *got.Image != wantKey {
			t.Fatalf("item %s image: want=%q got=%v", item.Language, wantKey, got.Image)
		}
	}

	result := decodeResult(t, store.record(record.ID))
	if result.Status != replicate.StatusSucceeded {
		t.Fatalf("result status: want=%q got=%q", replicate.StatusSucceeded, result.Status)
	}
	if result.Output == nil || *result.Output != types.GenerationOutputGenerated {
		t.Fatalf("result output: want=%q got=%v", types.GenerationOutputGenerated, result.Output)
	}
	assertBoundedResult(t, store.record(record.ID))

	// Both items were materialized in the same tick.
	if len(store.atoms) != 2 {
		t.Fatalf("atoms created: want=2 got=%d", len(store.atoms))
	}
	for _, item := range items {
		if store.item(item.ID).AtomID == nil {
			t.Fatalf("item %s has no atom id", item.Language)
		}
	}
}

func TestOrchestratorFieldConfigs(t *testing.T) {
	store := newMemStore()
	_, items := seedBatch(store, "en")
	img := "ai-generated/x/img.png"
	items[0].Status = types.GenerationStatusCompleted
	items[0].Image = &img
	store.record(items[0].RecordID).Status = types.GenerationStatusCompleted

	o := newTestOrchestrator(t, store, &fakePrediction{}, &fakeUploader{})
	o.RunTick(context.Background())

	if len(store.atoms) != 1 {
		t.Fatalf("atoms created: want=1 got=%d", len(store.atoms))
	}
	configs := map[string]string{}
	for _, c := range store.configs {
		configs[c.Name] = c.Value
	}
	for _, name := range []string{
		"tile_x", "tile_y", "jitter", "seed",
		"snap_tolerance", "edge_color", "background_color", "rotation_enabled",
	} {
		if _, ok := configs[name]; !ok {
			t.Fatalf("field config %q missing (got %v)", name, configs)
		}
	}
	if len(store.configs) != 8 {
		t.Fatalf("field config count: want=8 got=%d", len(store.configs))
	}
	// Tiles stay square: both axes come from the same draw.
	if configs["tile_x"] != configs["tile_y"] {
		t.Fatalf("tile_x=%q tile_y=%q, want equal", configs["tile_x"], configs["tile_y"])
	}
	tiles, err := strconv.Atoi(configs["tile_x"])
	if err != nil || tiles < tileCountMin || tiles > tileCountMax {
		t.Fatalf("tile_x out of range: %q", configs["tile_x"])
	}
}

func TestOrchestratorSubmissionFailure(t *testing.T) {
	store := newMemStore()
	record, items := seedBatch(store, "en")

	pred := &fakePrediction{submitErr: errors.New("quota exhausted")}
	o := newTestOrchestrator(t, store, pred, &fakeUploader{})
	o.RunTick(context.Background())

	if want, got := types.GenerationStatusFailed, store.record(record.ID).Status; got != want {
		t.Fatalf("record status: want=%q got=%q", want, got)
	}
	if want, got := types.GenerationStatusFailed, store.item(items[0].ID).Status; got != want {
		t.Fatalf("item status: want=%q got=%q", want, got)
	}
	result := decodeResult(t, store.record(record.ID))
	if result.Error != "quota exhausted" {
		t.Fatalf("result error: want=%q got=%q", "quota exhausted", result.Error)
	}
	// No retry: a failed record is out of the submission query for good.
	o.RunTick(context.Background())
	if pred.submitCalls != 1 {
		t.Fatalf("failed record was resubmitted: calls=%d", pred.submitCalls)
	}
}

func TestOrchestratorRecordWithoutItems(t *testing.T) {
	store := newMemStore()
	record := &types.GenerationRecord{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: types.GenerationStatusNotStarted,
	}
	store.records = append(store.records, record)

	pred := &fakePrediction{}
	o := newTestOrchestrator(t, store, pred, &fakeUploader{})
	o.RunTick(context.Background())

	if want, got := types.GenerationStatusFailed, store.record(record.ID).Status; got != want {
		t.Fatalf("record status: want=%q got=%q", want, got)
	}
	if pred.submitCalls != 0 {
		t.Fatalf("submitted a record without items: calls=%d", pred.submitCalls)
	}
	result := decodeResult(t, store.record(record.ID))
	if result.Error == "" {
		t.Fatalf("empty result error for item-less record")
	}
}

func TestOrchestratorProviderFailure(t *testing.T) {
	store := newMemStore()
	record, items := seedBatch(store, "en", "zh")

	pred := &fakePrediction{
		submitResp: &replicate.Prediction{ID: "pred-9", Status: replicate.StatusStarting},
		getFunc: func(id string) (*replicate.Prediction, error) {
			return &replicate.Prediction{ID: id, Status: replicate.StatusFailed, Error: "NSFW content detected"}, nil
		},
	}
	up := &fakeUploader{}
	o := newTestOrchestrator(t, store, pred, up)

	o.RunTick(context.Background())
	o.RunTick(context.Background())

	if want, got := types.GenerationStatusFailed, store.record(record.ID).Status; got != want {
		t.Fatalf("record status: want=%q got=%q", want, got)
	}
	for _, item := range items {
		if got := store.item(item.ID).Status; got != types.GenerationStatusFailed {
			t.Fatalf("item %s status: want=failed got=%q", item.Language, got)
		}
	}
	result := decodeResult(t, store.record(record.ID))
	if result.Status != replicate.StatusFailed {
		t.Fatalf("result status: want=%q got=%q", replicate.StatusFailed, result.Status)
	}
	if result.Error != "NSFW content detected" {
		t.Fatalf("result error: want=%q got=%q", "NSFW content detected", result.Error)
	}
	if result.Output != nil {
		t.Fatalf("result output on failure: want=nil got=%q", *result.Output)
	}
	assertBoundedResult(t, store.record(record.ID))
	if up.calls != 0 {
		t.Fatalf("upload attempted for a failed prediction")
	}
	if len(store.atoms) != 0 {
		t.Fatalf("atoms created from a failed record: %d", len(store.atoms))
	}
}

func TestOrchestratorPollingFaultIsolation(t *testing.T) {
	store := newMemStore()
	recA, _ := seedBatch(store, "en")
	recB, _ := seedBatch(store, "en")
	recC, _ := seedBatch(store, "en")

	for i, rec := range []*types.GenerationRecord{recA, recB, recC} {
		id := fmt.Sprintf("pred-%d", i)
		store.record(rec.ID).Status = types.GenerationStatusInProgress
		store.record(rec.ID).PredictionID = &id
	}

	pred := &fakePrediction{
		getFunc: func(id string) (*replicate.Prediction, error) {
			switch id {
			case "pred-0":
				return &replicate.Prediction{ID: id, Status: replicate.StatusSucceeded, Output: []string{"https://x/out.png"}}, nil
			case "pred-1":
				return nil, errors.New("connection reset")
			default:
				return &replicate.Prediction{ID: id, Status: replicate.StatusFailed, Error: "boom"}, nil
			}
		},
	}
	o := newTestOrchestrator(t, store, pred, &fakeUploader{})
	o.RunTick(context.Background())

	if got := store.record(recA.ID).Status; got != types.GenerationStatusCompleted {
		t.Fatalf("record A: want=completed got=%q", got)
	}
	// The transient poll error leaves B untouched for the next tick.
	if got := store.record(recB.ID).Status; got != types.GenerationStatusInProgress {
		t.Fatalf("record B: want=in_progress got=%q", got)
	}
	if got := store.record(recC.ID).Status; got != types.GenerationStatusFailed {
		t.Fatalf("record C: want=failed got=%q", got)
	}
}

func TestOrchestratorUploadFailure(t *testing.T) {
	store := newMemStore()
	record, items := seedBatch(store, "en")
	id := "pred-7"
	store.record(record.ID).Status = types.GenerationStatusInProgress
	store.record(record.ID).PredictionID = &id
	store.item(items[0].ID).Status = types.GenerationStatusInProgress

	pred := &fakePrediction{
		getFunc: func(id string) (*replicate.Prediction, error) {
			return &replicate.Prediction{ID: id, Status: replicate.StatusSucceeded, Output: []string{"https://x/out.png"}}, nil
		},
	}
	o := newTestOrchestrator(t, store, pred, &fakeUploader{err: errors.New("bucket unavailable")})
	o.RunTick(context.Background())

	if want, got := types.GenerationStatusFailed, store.record(record.ID).Status; got != want {
		t.Fatalf("record status: want=%q got=%q", want, got)
	}
	if got := store.item(items[0].ID).Status; got == types.GenerationStatusCompleted {
		t.Fatalf("item marked completed despite upload failure")
	}
	if len(store.atoms) != 0 {
		t.Fatalf("atoms created despite upload failure: %d", len(store.atoms))
	}
}

func TestOrchestratorMaterializationRetry(t *testing.T) {
	store := newMemStore()
	record, items := seedBatch(store, "en")
	img := "ai-generated/r/img.png"
	item := store.item(items[0].ID)
	item.Status = types.GenerationStatusCompleted
	item.Image = &img
	store.record(record.ID).Status = types.GenerationStatusCompleted

	store.atomCreateErr = errors.New("disk full")
	o := newTestOrchestrator(t, store, &fakePrediction{}, &fakeUploader{})
	ctx := context.Background()

	o.RunTick(ctx)
	if item.AtomID != nil {
		t.Fatalf("atom id written despite create failure")
	}
	if got := item.Status; got != types.GenerationStatusCompleted {
		t.Fatalf("item status after failed materialization: want=completed got=%q", got)
	}

	// The item is still selectable, and succeeds once the fault clears.
	store.atomCreateErr = nil
	o.RunTick(ctx)
	if item.AtomID == nil {
		t.Fatalf("item not materialized after fault cleared")
	}
	if len(store.atoms) != 1 {
		t.Fatalf("atoms created: want=1 got=%d", len(store.atoms))
	}

	// Write-once: a further tick does not create a second atom.
	o.RunTick(ctx)
	if len(store.atoms) != 1 {
		t.Fatalf("materialized item processed again: atoms=%d", len(store.atoms))
	}
}

func TestOrchestratorMaterializationMissingTaxonomy(t *testing.T) {
	store := newMemStore()
	record, items := seedBatch(store, "en")
	img := "ai-generated/r/img.png"
	item := store.item(items[0].ID)
	item.Status = types.GenerationStatusCompleted
	item.Image = &img
	item.CategoryID = uuid.New() // dangling reference
	store.record(record.ID).Status = types.GenerationStatusCompleted

	o := newTestOrchestrator(t, store, &fakePrediction{}, &fakeUploader{})
	o.RunTick(context.Background())

	if item.AtomID != nil {
		t.Fatalf("atom created against a missing category")
	}
	if len(store.atoms) != 0 {
		t.Fatalf("atoms: want=0 got=%d", len(store.atoms))
	}
	// Status is untouched so the item stays in the retry pool.
	if got := item.Status; got != types.GenerationStatusCompleted {
		t.Fatalf("item status: want=completed got=%q", got)
	}
}

// A prediction id is only meaningful while a job is in flight: once a record
// reaches a terminal status it must not keep pointing at the external job.
func TestOrchestratorTerminalRecordsDropPredictionID(t *testing.T) {
	store := newMemStore()
	succeeded, _ := seedBatch(store, "en")
	failed, _ := seedBatch(store, "en")

	pred := &fakePrediction{
		getFunc: func(id string) (*replicate.Prediction, error) {
			if id == "pred-ok" {
				return &replicate.Prediction{ID: id, Status: replicate.StatusSucceeded, Output: []string{"https://x/out.png"}}, nil
			}
			return &replicate.Prediction{ID: id, Status: replicate.StatusFailed, Error: "boom"}, nil
		},
	}
	for rec, id := range map[*types.GenerationRecord]string{succeeded: "pred-ok", failed: "pred-no"} {
		predID := id
		store.record(rec.ID).Status = types.GenerationStatusInProgress
		store.record(rec.ID).PredictionID = &predID
	}

	o := newTestOrchestrator(t, store, pred, &fakeUploader{})
	o.RunTick(context.Background())

	if got := store.record(succeeded.ID).Status; got != types.GenerationStatusCompleted {
		t.Fatalf("succeeded record status: want=completed got=%q", got)
	}
	if got := store.record(failed.ID).Status; got != types.GenerationStatusFailed {
		t.Fatalf("failed record status: want=failed got=%q", got)
	}
	for _, rec := range []*types.GenerationRecord{succeeded, failed} {
		if pid := store.record(rec.ID).PredictionID; pid != nil {
			t.Fatalf("terminal record %s still carries prediction_id=%q", rec.ID, *pid)
		}
	}
}

// markRecordFailed paths (upload failure here) clear the id too.
func TestOrchestratorUploadFailureDropsPredictionID(t *testing.T) {
	store := newMemStore()
	record, _ := seedBatch(store, "en")
	id := "pred-up"
	store.record(record.ID).Status = types.GenerationStatusInProgress
	store.record(record.ID).PredictionID = &id

	pred := &fakePrediction{
		getFunc: func(id string) (*replicate.Prediction, error) {
			return &replicate.Prediction{ID: id, Status: replicate.StatusSucceeded, Output: []string{"https://x/out.png"}}, nil
		},
	}
	o := newTestOrchestrator(t, store, pred, &fakeUploader{err: errors.New("bucket unavailable")})
	o.RunTick(context.Background())

	if got := store.record(record.ID).Status; got != types.GenerationStatusFailed {
		t.Fatalf("record status: want=failed got=%q", got)
	}
	if pid := store.record(record.ID).PredictionID; pid != nil {
		t.Fatalf("failed record still carries prediction_id=%q", *pid)
	}
}

func TestOrchestratorSubmitBatchBound(t *testing.T) {
	t.Setenv("PIPELINE_SUBMIT_BATCH", "2")
	store := newMemStore()
	for i := 0; i < 4; i++ {
		seedBatch(store, "en")
	}

	pred := &fakePrediction{submitResp: &replicate.Prediction{ID: "p", Status: replicate.StatusStarting}}
	o := newTestOrchestrator(t, store, pred, &fakeUploader{})
	o.RunTick(context.Background())

	if pred.submitCalls != 2 {
		t.Fatalf("submit calls: want=2 got=%d", pred.submitCalls)
	}
	remaining := 0
	for _, r := range store.records {
		if r.Status == types.GenerationStatusNotStarted {
			remaining++
		}
	}
	if remaining != 2 {
		t.Fatalf("remaining not_started records: want=2 got=%d", remaining)
	}
}
