package types

import (
	"time"

	"github.com/google/uuid"
)

// StreakInfo is a singleton row per user. The longest column never falls
// below current.
type StreakInfo struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User           *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Current        int        `gorm:"column:current;not null;default:0" json:"current"`
	Longest        int        `gorm:"column:longest;not null;default:0" json:"longest"`
	LastReviewDate *time.Time `gorm:"column:last_review_date" json:"last_review_date,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (StreakInfo) TableName() string { return "streak_info" }
