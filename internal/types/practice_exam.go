package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ExamStatusPending    = "pending"
	ExamStatusReady      = "ready"
	ExamStatusInProgress = "in_progress"
	ExamStatusCompleted  = "completed"
	ExamStatusFailed     = "failed"
)

type PracticeExam struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LectureID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"lecture_id"`
	Lecture     *Lecture   `gorm:"constraint:OnDelete:CASCADE;foreignKey:LectureID;references:ID" json:"lecture,omitempty"`
	OwnerUserID uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Title       string     `gorm:"column:title" json:"title,omitempty"`
	Status      string     `gorm:"column:status;not null;default:pending" json:"status"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (PracticeExam) TableName() string { return "practice_exam" }

type PracticeExamQuestion struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PracticeExamID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"practice_exam_id"`
	PracticeExam     *PracticeExam   `gorm:"constraint:OnDelete:CASCADE;foreignKey:PracticeExamID;references:ID" json:"practice_exam,omitempty"`
	StudyPlanEntryID *uuid.UUID      `gorm:"type:uuid;index" json:"study_plan_entry_id,omitempty"`
	StudyPlanEntry   *StudyPlanEntry `gorm:"constraint:OnDelete:SET NULL;foreignKey:StudyPlanEntryID;references:ID" json:"study_plan_entry,omitempty"`
	Index            int             `gorm:"column:index;not null" json:"index"`
	Prompt           string          `gorm:"column:prompt;not null" json:"prompt"`
	ModelAnswer      string          `gorm:"column:model_answer" json:"model_answer,omitempty"`
	MaxPoints        int             `gorm:"column:max_points;not null;default:10" json:"max_points"`
	Metadata         datatypes.JSON  `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

func (PracticeExamQuestion) TableName() string { return "practice_exam_question" }

// PracticeExamResponse holds one graded answer per question. Re-grading
// overwrites the row, keyed by question id.
type PracticeExamResponse struct {
	ID                     uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	PracticeExamQuestionID uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex" json:"practice_exam_question_id"`
	PracticeExamQuestion   *PracticeExamQuestion `gorm:"constraint:OnDelete:CASCADE;foreignKey:PracticeExamQuestionID;references:ID" json:"practice_exam_question,omitempty"`
	AnswerText             string                `gorm:"column:answer_text" json:"answer_text,omitempty"`
	Score                  float64               `gorm:"column:score;not null;default:0" json:"score"`
	ResponseQuality        string                `gorm:"column:response_quality" json:"response_quality,omitempty"`
	Feedback               string                `gorm:"column:feedback" json:"feedback,omitempty"`
	GradedAt               *time.Time            `gorm:"column:graded_at" json:"graded_at,omitempty"`
	CreatedAt              time.Time             `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time             `gorm:"not null" json:"updated_at"`
}

func (PracticeExamResponse) TableName() string { return "practice_exam_response" }
