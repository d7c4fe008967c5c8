package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Lecture struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Owner       *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:OwnerUserID;references:ID" json:"owner,omitempty"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Category    string         `gorm:"column:category" json:"category,omitempty"`
	Summary     string         `gorm:"column:summary" json:"summary,omitempty"`
	RawText     string         `gorm:"column:raw_text" json:"raw_text,omitempty"`
	Status      string         `gorm:"column:status;not null;default:uploaded" json:"status"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lecture) TableName() string { return "lecture" }
