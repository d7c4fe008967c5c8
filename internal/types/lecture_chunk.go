package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LectureChunk is one segmenter window of a lecture's raw text, kept so
// embeddings can be attached per window. Index is the zero-based chunk
// position.
type LectureChunk struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LectureID uuid.UUID      `gorm:"type:uuid;not null;index" json:"lecture_id"`
	Lecture   *Lecture       `gorm:"constraint:OnDelete:CASCADE;foreignKey:LectureID;references:ID" json:"lecture,omitempty"`
	Index     int            `gorm:"column:index;not null" json:"index"`
	Text      string         `gorm:"column:text;not null" json:"text"`
	Embedding datatypes.JSON `gorm:"column:embedding" json:"embedding,omitempty"`
	Model     string         `gorm:"column:model" json:"model,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (LectureChunk) TableName() string { return "lecture_chunk" }
