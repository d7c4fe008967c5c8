package services

import (
	"context"

	"github.com/devBarbar/smart-study-notes-sub002/internal/llm"
	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

// NewUsageRecorder adapts the ai_call_log table into an llm.Recorder.
// Inserts are best-effort: a failed write is logged and dropped, never
// surfaced to the pipeline that made the call.
func NewUsageRecorder(log *logger.Logger, callLogs repos.AICallLogRepo) llm.Recorder {
	recLog := log.With("service", "UsageRecorder")
	return func(ctx context.Context, rec llm.CallRecord) {
		row := &types.AICallLog{
			CallType: rec.CallType,
			Model:    rec.Model,
			Success:  rec.Success,
			Error:    rec.Error,
		}
		if rec.Usage != nil {
			row.PromptTokens = rec.Usage.PromptTokens
			row.CompletionTokens = rec.Usage.CompletionTokens
			row.TotalTokens = rec.Usage.TotalTokens
		}
		if rec.Cost != nil {
			row.InputCostUsd = rec.Cost.InputUsd
			row.OutputCostUsd = rec.Cost.OutputUsd
			row.CostUsd = rec.Cost.TotalUsd
		}
		if err := callLogs.Insert(ctx, nil, row); err != nil {
			recLog.Warn("Failed to record usage", "call_type", rec.CallType, "error", err)
		}
	}
}
