package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/mosaicry/mosaicry-backend/internal/domain"
)

func SeedCategory(tb testing.TB, ctx context.Context, tx *gorm.DB, name, language string) *types.Category {
	tb.Helper()
	c := &types.Category{
		ID:       uuid.New(),
		Name:     name,
		Language: language,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}

func SeedGroup(tb testing.TB, ctx context.Context, tx *gorm.DB, name, language string) *types.Group {
	tb.Helper()
	g := &types.Group{
		ID:       uuid.New(),
		Name:     name,
		Language: language,
	}
	if err := tx.WithContext(ctx).Create(g).Error; err != nil {
		tb.Fatalf("seed group: %v", err)
	}
	return g
}

func SeedTag(tb testing.TB, ctx context.Context, tx *gorm.DB, name, language string) *types.Tag {
	tb.Helper()
	tg := &types.Tag{
		ID:       uuid.New(),
		Name:     name,
		Language: language,
	}
	if err := tx.WithContext(ctx).Create(tg).Error; err != nil {
		tb.Fatalf("seed tag: %v", err)
	}
	return tg
}

func SeedRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, status string, createdAt time.Time) *types.GenerationRecord {
	tb.Helper()
	r := &types.GenerationRecord{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Status:    status,
		Result:    datatypes.JSON([]byte("{}")),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed generation record: %v", err)
	}
	return r
}

func SeedItem(tb testing.TB, ctx context.Context, tx *gorm.DB, recordID uuid.UUID, language, status string) *types.GenerationItem {
	tb.Helper()
	it := &types.GenerationItem{
		ID:         uuid.New(),
		RecordID:   recordID,
		Language:   language,
		Title:      "title",
		Content:    "a cat",
		CategoryID: uuid.New(),
		GroupID:    uuid.New(),
		TagIDs:     datatypes.JSON([]byte("[]")),
		Status:     status,
	}
	if err := tx.WithContext(ctx).Create(it).Error; err != nil {
		tb.Fatalf("seed generation item: %v", err)
	}
	return it
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrString(v string) *string { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
