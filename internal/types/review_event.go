package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ResponseQualityCorrect   = "correct"
	ResponseQualityIncorrect = "incorrect"
	ResponseQualityPartial   = "partial"
	ResponseQualitySkipped   = "skipped"
)

// ReviewEvent is an append-only record of one review of a study unit.
// Manual reviews are never mutated or deleted after insert. Events that
// came from grading an exam answer carry the question id; re-grading
// that answer replaces the event instead of stacking a duplicate.
type ReviewEvent struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	StudyPlanEntryID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"study_plan_entry_id"`
	StudyPlanEntry         *StudyPlanEntry `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudyPlanEntryID;references:ID" json:"study_plan_entry,omitempty"`
	PracticeExamQuestionID *uuid.UUID      `gorm:"type:uuid;index" json:"practice_exam_question_id,omitempty"`
	Score                  *float64        `gorm:"column:score" json:"score,omitempty"`
	ResponseQuality        string          `gorm:"column:response_quality;not null" json:"response_quality"`
	ReviewedAt             time.Time       `gorm:"column:reviewed_at;not null;index" json:"reviewed_at"`
	CreatedAt              time.Time       `gorm:"not null" json:"created_at"`
}

func (ReviewEvent) TableName() string { return "review_event" }
