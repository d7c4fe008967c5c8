package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobTypePlan         = "plan"
	JobTypeChat         = "chat"
	JobTypeGrade        = "grade"
	JobTypeTranscribe   = "transcribe"
	JobTypeMetadata     = "metadata"
	JobTypeEmbed        = "embed"
	JobTypePracticeExam = "practice_exam"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job is a durable record of one asynchronous unit of pipeline work.
// Rows are created by clients, mutated only by the worker, and never
// deleted; the status column is the externally observable lifecycle.
type Job struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Type        string         `gorm:"column:type;not null;index" json:"type"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	Stage       string         `gorm:"column:stage" json:"stage,omitempty"`
	Progress    int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload"`
	Result      datatypes.JSON `gorm:"column:result" json:"result,omitempty"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	ClaimedAt   *time.Time     `gorm:"column:claimed_at" json:"claimed_at,omitempty"`
	FinishedAt  *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Job) TableName() string { return "job" }

// AllowedJobTypes is the enqueue-time allow-list. Unknown types are
// rejected before any row is written.
var AllowedJobTypes = map[string]bool{
	JobTypePlan:         true,
	JobTypeChat:         true,
	JobTypeGrade:        true,
	JobTypeTranscribe:   true,
	JobTypeMetadata:     true,
	JobTypeEmbed:        true,
	JobTypePracticeExam: true,
}
