package jobs

import (
	"fmt"
	"strings"

	"github.com/devBarbar/smart-study-notes-sub002/internal/llm"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/segment"
	"github.com/devBarbar/smart-study-notes-sub002/internal/services"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

const chatSystemPrompt = `You are a study tutor. Answer the student's question clearly and
concisely. When lecture material is provided, ground your answer in it.`

// chatContextMaxTokens bounds how much lecture text is prepended.
const chatContextMaxTokens = 3000

// ChatHandler streams a tutoring answer. Deltas go out over SSE as they
// arrive; the assembled text lands in the job result. A cancelled
// stream keeps whatever was already delivered.
type ChatHandler struct {
	lectures repos.LectureRepo
	client   llm.Client
	notify   services.JobNotifier
}

func NewChatHandler(lectures repos.LectureRepo, client llm.Client, notify services.JobNotifier) *ChatHandler {
	return &ChatHandler{lectures: lectures, client: client, notify: notify}
}

func (h *ChatHandler) Type() string { return types.JobTypeChat }

func (h *ChatHandler) Run(jc *Context) error {
	var payload ChatPayload
	if err := jc.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	system := chatSystemPrompt
	if payload.LectureID != nil {
		lecture, err := h.lectures.GetByID(jc.Ctx, nil, *payload.LectureID)
		if err != nil {
			return fmt.Errorf("load lecture: %w", err)
		}
		if lecture != nil && strings.TrimSpace(lecture.RawText) != "" {
			system += "\n\nLecture material:\n" + segment.TruncateToTokenLimit(lecture.RawText, chatContextMaxTokens)
		}
	}

	messages := make([]llm.Message, 0, len(payload.Messages)+1)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	messages = append(messages, payload.Messages...)

	jc.Progress("stream", 10)
	stream, err := h.client.GenerateStream(jc.Ctx, messages)
	if err != nil {
		return fmt.Errorf("start stream: %w", err)
	}

	for delta := range stream.Deltas() {
		if h.notify != nil {
			h.notify.ChatDelta(jc.Job.OwnerUserID, jc.Job.ID, delta)
		}
	}

	result, err := stream.Result()
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	if h.notify != nil {
		h.notify.ChatDone(jc.Job.OwnerUserID, jc.Job.ID, result.Text)
	}

	out := map[string]any{"text": result.Text, "model": result.Model}
	if result.Usage != nil {
		out["usage"] = result.Usage
	}
	if result.Cost != nil {
		out["cost"] = result.Cost
	}
	jc.Complete(out)
	return nil
}
