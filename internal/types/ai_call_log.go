package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AICallLog is the best-effort cost-accounting side channel. Absent
// usage fields are valid; rows never gate pipeline correctness.
type AICallLog struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	JobID            *uuid.UUID     `gorm:"type:uuid;index" json:"job_id,omitempty"`
	CallType         string         `gorm:"column:call_type;not null" json:"call_type"`
	Model            string         `gorm:"column:model;not null" json:"model"`
	Success          bool           `gorm:"column:success;not null" json:"success"`
	Error            string         `gorm:"column:error" json:"error,omitempty"`
	PromptTokens     int            `gorm:"column:prompt_tokens;not null;default:0" json:"prompt_tokens"`
	CompletionTokens int            `gorm:"column:completion_tokens;not null;default:0" json:"completion_tokens"`
	TotalTokens      int            `gorm:"column:total_tokens;not null;default:0" json:"total_tokens"`
	InputCostUsd     float64        `gorm:"column:input_cost_usd;not null;default:0" json:"input_cost_usd"`
	OutputCostUsd    float64        `gorm:"column:output_cost_usd;not null;default:0" json:"output_cost_usd"`
	CostUsd          float64        `gorm:"column:cost_usd;not null;default:0" json:"cost_usd"`
	Metadata         datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
}

func (AICallLog) TableName() string { return "ai_call_log" }
