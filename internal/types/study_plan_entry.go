package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TierCore      = "core"
	TierHighYield = "high-yield"
	TierStretch   = "stretch"
)

const (
	ExamRelevanceHigh   = "high"
	ExamRelevanceMedium = "medium"
	ExamRelevanceLow    = "low"
)

// StudyPlanEntry is one study unit extracted from a lecture. Titles are
// unique case-insensitively within a lecture and order_index is a dense
// zero-based total order (tier, then priority, then discovery).
type StudyPlanEntry struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LectureID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"lecture_id"`
	Lecture         *Lecture       `gorm:"constraint:OnDelete:CASCADE;foreignKey:LectureID;references:ID" json:"lecture,omitempty"`
	Title           string         `gorm:"column:title;not null" json:"title"`
	Description     string         `gorm:"column:description" json:"description,omitempty"`
	KeyConcepts     datatypes.JSON `gorm:"column:key_concepts" json:"key_concepts,omitempty"`
	Category        string         `gorm:"column:category" json:"category,omitempty"`
	ImportanceTier  string         `gorm:"column:importance_tier;not null;default:core" json:"importance_tier"`
	PriorityScore   int            `gorm:"column:priority_score;not null;default:0" json:"priority_score"`
	OrderIndex      int            `gorm:"column:order_index;not null;default:0" json:"order_index"`
	FromExamSource  bool           `gorm:"column:from_exam_source;not null;default:false" json:"from_exam_source"`
	ExamRelevance   string         `gorm:"column:exam_relevance" json:"exam_relevance,omitempty"`
	MentionedInNotes bool          `gorm:"column:mentioned_in_notes;not null;default:false" json:"mentioned_in_notes"`
	MasteryScore    float64        `gorm:"column:mastery_score;not null;default:0" json:"mastery_score"`
	NextReviewAt    *time.Time     `gorm:"column:next_review_at;index" json:"next_review_at,omitempty"`
	ReviewCount     int            `gorm:"column:review_count;not null;default:0" json:"review_count"`
	EaseFactor      float64        `gorm:"column:ease_factor;not null;default:2.5" json:"ease_factor"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (StudyPlanEntry) TableName() string { return "study_plan_entry" }
