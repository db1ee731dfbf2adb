package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category, Group and Tag are shared reference dimensions. The pipeline looks
// tags up-or-creates them by (name, language); categories and groups are
// resolved at intake time and only read afterwards.

type Category struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string         `gorm:"column:name;not null;index:idx_category_name_lang,unique,priority:1" json:"name"`
	Language  string         `gorm:"column:language;not null;index:idx_category_name_lang,unique,priority:2" json:"language"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Category) TableName() string { return "category" }

type Group struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string         `gorm:"column:name;not null;index:idx_group_name_lang,unique,priority:1" json:"name"`
	Language  string         `gorm:"column:language;not null;index:idx_group_name_lang,unique,priority:2" json:"language"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Group) TableName() string { return "group_ref" }

type Tag struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string         `gorm:"column:name;not null;index:idx_tag_name_lang,unique,priority:1" json:"name"`
	Language  string         `gorm:"column:language;not null;index:idx_tag_name_lang,unique,priority:2" json:"language"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Tag) TableName() string { return "tag" }
