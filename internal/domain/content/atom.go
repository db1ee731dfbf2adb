package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AtomStatusPublished = "published"
	AtomStatusHidden    = "hidden"
)

// Atom is a published puzzle content unit: the image plus its rendering
// configuration, surfaced to end users.
type Atom struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;column:user_id;not null;index" json:"user_id"`
	CategoryID uuid.UUID      `gorm:"type:uuid;column:category_id;not null;index" json:"category_id"`
	GroupID    uuid.UUID      `gorm:"type:uuid;column:group_id;not null;index" json:"group_id"`
	Language   string         `gorm:"column:language;not null;index" json:"language"`
	Title      string         `gorm:"column:title;not null" json:"title"`
	Content    string         `gorm:"column:content;type:text" json:"content"`
	Image      string         `gorm:"column:image;not null" json:"image"`
	Status     string         `gorm:"column:status;not null;default:'published';index" json:"status"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Atom) TableName() string { return "atom" }

// AtomFieldConfig is one puzzle rendering parameter row owned by an Atom.
type AtomFieldConfig struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AtomID uuid.UUID `gorm:"type:uuid;column:atom_id;not null;index;constraint:OnDelete:CASCADE" json:"atom_id"`
	Atom   *Atom     `gorm:"constraint:OnDelete:CASCADE;foreignKey:AtomID;references:ID" json:"-"`
	Name   string    `gorm:"column:name;not null" json:"name"`
	Value  string    `gorm:"column:value;not null" json:"value"`
}

func (AtomFieldConfig) TableName() string { return "atom_field_config" }

// AtomTag links an Atom to a Tag.
type AtomTag struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AtomID uuid.UUID `gorm:"type:uuid;column:atom_id;not null;index" json:"atom_id"`
	Atom   *Atom     `gorm:"constraint:OnDelete:CASCADE;foreignKey:AtomID;references:ID" json:"-"`
	TagID  uuid.UUID `gorm:"type:uuid;column:tag_id;not null;index" json:"tag_id"`
}

func (AtomTag) TableName() string { return "atom_tag" }
