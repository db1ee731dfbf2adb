package generation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// OutputGenerated is the opaque indicator persisted in place of raw provider
// output. The bounded result blob never carries provider payloads.
const OutputGenerated = "已生成"

// Record is one batch-level AI content generation request. The pipeline owns
// its status transitions; rows are created by the intake API and never deleted
// by the pipeline.
type Record struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;column:user_id;not null;index" json:"user_id"`
	Status       string         `gorm:"column:status;not null;default:'not_started';index" json:"status"`
	PredictionID *string        `gorm:"column:prediction_id;index" json:"prediction_id,omitempty"`
	Result       datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Record) TableName() string { return "generation_record" }

// Item is one per-language content unit inside a Record. Category, group and
// tag references are resolved to IDs at intake time; AtomID is written exactly
// once, by materialization.
type Item struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecordID   uuid.UUID      `gorm:"type:uuid;column:record_id;not null;index" json:"record_id"`
	Language   string         `gorm:"column:language;not null;index" json:"language"`
	Title      string         `gorm:"column:title;not null" json:"title"`
	Content    string         `gorm:"column:content;type:text;not null" json:"content"`
	CategoryID uuid.UUID      `gorm:"type:uuid;column:category_id;not null" json:"category_id"`
	GroupID    uuid.UUID      `gorm:"type:uuid;column:group_id;not null" json:"group_id"`
	TagIDs     datatypes.JSON `gorm:"column:tag_ids;type:jsonb" json:"tag_ids"` // []uuid.UUID
	Image      *string        `gorm:"column:image" json:"image,omitempty"`
	AtomID     *uuid.UUID     `gorm:"type:uuid;column:atom_id;index" json:"atom_id,omitempty"`
	Status     string         `gorm:"column:status;not null;default:'not_started';index" json:"status"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Item) TableName() string { return "generation_item" }

// Result is the bounded persisted summary for a finished Record:
// status, an output indicator, and the external error text. Nothing else.
type Result struct {
	Status string  `json:"status"`
	Output *string `json:"output"`
	Error  string  `json:"error,omitempty"`
}
