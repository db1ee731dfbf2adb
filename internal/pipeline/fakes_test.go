package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/mosaicry/mosaicry-backend/internal/domain"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/dbctx"
	"github.com/mosaicry/mosaicry-backend/internal/pkg/logger"
	"github.com/mosaicry/mosaicry-backend/internal/platform/replicate"
)

// testDB provides transaction plumbing for the orchestrator; the fakes below
// hold the actual state.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// memStore is shared in-memory backing state for the fake repos.
type memStore struct {
	records []*types.GenerationRecord
	items   []*types.GenerationItem
	atoms   []*types.Atom
	configs []*types.AtomFieldConfig
	links   []*types.AtomTag

	categories map[uuid.UUID]*types.Category
	groups     map[uuid.UUID]*types.Group

	atomCreateErr error
}

func newMemStore() *memStore {
	return &memStore{
		categories: map[uuid.UUID]*types.Category{},
		groups:     map[uuid.UUID]*types.Group{},
	}
}

func (s *memStore) record(id uuid.UUID) *types.GenerationRecord {
	for _, r := range s.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *memStore) item(id uuid.UUID) *types.GenerationItem {
	for _, it := range s.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func applyRecordUpdates(r *types.GenerationRecord, updates map[string]interface{}) error {
	for k, v := range updates {
		switch k {
		case "status":
			r.Status = v.(string)
		case "prediction_id":
			if v == nil {
				r.PredictionID = nil
				break
			}
			id := fmt.Sprintf("%v", v)
			r.PredictionID = &id
		case "result":
			r.Result = v.(datatypes.JSON)
		default:
			return fmt.Errorf("unexpected record update field %q", k)
		}
	}
	return nil
}

func applyItemUpdates(it *types.GenerationItem, updates map[string]interface{}) error {
	for k, v := range updates {
		switch k {
		case "status":
			it.Status = v.(string)
		case "image":
			img := v.(string)
			it.Image = &img
		case "atom_id":
			id := v.(uuid.UUID)
			it.AtomID = &id
		default:
			return fmt.Errorf("unexpected item update field %q", k)
		}
	}
	return nil
}

type recordsFake struct{ s *memStore }

func (f *recordsFake) Create(dbc dbctx.Context, record *types.GenerationRecord) (*types.GenerationRecord, error) {
	f.s.records = append(f.s.records, record)
	return record, nil
}

func (f *recordsFake) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GenerationRecord, error) {
	r := f.s.record(id)
	if r == nil {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (f *recordsFake) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.GenerationRecord, error) {
	var out []*types.GenerationRecord
	for _, r := range f.s.records {
		if r.Status != status {
			continue
		}
		clone := *r
		out = append(out, &clone)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *recordsFake) ListPollable(dbc dbctx.Context) ([]*types.GenerationRecord, error) {
	var out []*types.GenerationRecord
	for _, r := range f.s.records {
		if r.Status == types.GenerationStatusInProgress && r.PredictionID != nil {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *recordsFake) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r := f.s.record(id)
	if r == nil {
		return fmt.Errorf("record %s not found", id)
	}
	return applyRecordUpdates(r, updates)
}

type itemsFake struct{ s *memStore }

func (f *itemsFake) Create(dbc dbctx.Context, items []*types.GenerationItem) ([]*types.GenerationItem, error) {
	f.s.items = append(f.s.items, items...)
	return items, nil
}

func (f *itemsFake) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GenerationItem, error) {
	it := f.s.item(id)
	if it == nil {
		return nil, nil
	}
	clone := *it
	return &clone, nil
}

func (f *itemsFake) ListByRecord(dbc dbctx.Context, recordID uuid.UUID) ([]*types.GenerationItem, error) {
	var out []*types.GenerationItem
	for _, it := range f.s.items {
		if it.RecordID == recordID {
			clone := *it
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *itemsFake) FirstPending(dbc dbctx.Context, recordID uuid.UUID, language string) (*types.GenerationItem, error) {
	for _, it := range f.s.items {
		if it.RecordID == recordID && it.Language == language && it.Status == types.GenerationStatusNotStarted {
			clone := *it
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *itemsFake) ListMaterializable(dbc dbctx.Context, limit int) ([]*types.GenerationItem, error) {
	var out []*types.GenerationItem
	for _, it := range f.s.items {
		if it.Status == types.GenerationStatusCompleted && it.AtomID == nil && it.Image != nil {
			clone := *it
			out = append(out, &clone)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *itemsFake) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	it := f.s.item(id)
	if it == nil {
		return fmt.Errorf("item %s not found", id)
	}
	return applyItemUpdates(it, updates)
}

func (f *itemsFake) UpdateFieldsByRecord(dbc dbctx.Context, recordID uuid.UUID, updates map[string]interface{}) error {
	for _, it := range f.s.items {
		if it.RecordID != recordID {
			continue
		}
		if err := applyItemUpdates(it, updates); err != nil {
			return err
		}
	}
	return nil
}

type atomsFake struct{ s *memStore }

func (f *atomsFake) Create(dbc dbctx.Context, atom *types.Atom) (*types.Atom, error) {
	if f.s.atomCreateErr != nil {
		return nil, f.s.atomCreateErr
	}
	f.s.atoms = append(f.s.atoms, atom)
	return atom, nil
}

func (f *atomsFake) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Atom, error) {
	for _, a := range f.s.atoms {
		if a.ID == id {
			clone := *a
			return &clone, nil
		}
	}
	return nil, nil
}

type fieldConfigsFake struct{ s *memStore }

func (f *fieldConfigsFake) CreateMany(dbc dbctx.Context, configs []*types.AtomFieldConfig) error {
	f.s.configs = append(f.s.configs, configs...)
	return nil
}

func (f *fieldConfigsFake) ListByAtom(dbc dbctx.Context, atomID uuid.UUID) ([]*types.AtomFieldConfig, error) {
	var out []*types.AtomFieldConfig
	for _, c := range f.s.configs {
		if c.AtomID == atomID {
			out = append(out, c)
		}
	}
	return out, nil
}

type atomTagsFake struct{ s *memStore }

func (f *atomTagsFake) CreateMany(dbc dbctx.Context, links []*types.AtomTag) error {
	f.s.links = append(f.s.links, links...)
	return nil
}

func (f *atomTagsFake) ListByAtom(dbc dbctx.Context, atomID uuid.UUID) ([]*types.AtomTag, error) {
	var out []*types.AtomTag
	for _, l := range f.s.links {
		if l.AtomID == atomID {
			out = append(out, l)
		}
	}
	return out, nil
}

type categoriesFake struct{ s *memStore }

func (f *categoriesFake) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Category, error) {
	return f.s.categories[id], nil
}

func (f *categoriesFake) FindOrCreate(dbc dbctx.Context, name, language string) (*types.Category, error) {
	for _, c := range f.s.categories {
		if c.Name == name && c.Language == language {
			return c, nil
		}
	}
	c := &types.Category{ID: uuid.New(), Name: name, Language: language}
	f.s.categories[c.ID] = c
	return c, nil
}

type groupsFake struct{ s *memStore }

func (f *groupsFake) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Group, error) {
	return f.s.groups[id], nil
}

func (f *groupsFake) FindOrCreate(dbc dbctx.Context, name, language string) (*types.Group, error) {
	for _, g := range f.s.groups {
		if g.Name == name && g.Language == language {
			return g, nil
		}
	}
	g := &types.Group{ID: uuid.New(), Name: name, Language: language}
	f.s.groups[g.ID] = g
	return g, nil
}

type fakePrediction struct {
	submitResp  *replicate.Prediction
	submitErr   error
	submitCalls int

	getFunc  func(id string) (*replicate.Prediction, error)
	getCalls int
}

func (f *fakePrediction) Submit(ctx context.Context, input replicate.PredictionInput) (*replicate.Prediction, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.submitResp != nil {
		return f.submitResp, nil
	}
	return &replicate.Prediction{ID: "pred-1", Status: replicate.StatusStarting}, nil
}

func (f *fakePrediction) Get(ctx context.Context, id string) (*replicate.Prediction, error) {
	f.getCalls++
	if f.getFunc != nil {
		return f.getFunc(id)
	}
	return &replicate.Prediction{ID: id, Status: replicate.StatusProcessing}, nil
}

type fakeUploader struct {
	err   error
	calls int
	keys  []string
}

func (f *fakeUploader) UploadFromURL(ctx context.Context, sourceURL, key string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return key, nil
}
