package jobs

import (
	"fmt"
	"strings"

	"github.com/devBarbar/smart-study-notes-sub002/internal/llm"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

const transcribeSystemPrompt = `You transcribe study material from an image (handwritten notes,
slides, whiteboard photos). Output the transcribed text only, preserving
structure with plain paragraphs and lists. No commentary.`

// TranscribeHandler turns an image of notes into text and appends it to
// the lecture so downstream planning can use it.
type TranscribeHandler struct {
	lectures repos.LectureRepo
	client   llm.Client
}

func NewTranscribeHandler(lectures repos.LectureRepo, client llm.Client) *TranscribeHandler {
	return &TranscribeHandler{lectures: lectures, client: client}
}

func (h *TranscribeHandler) Type() string { return types.JobTypeTranscribe }

func (h *TranscribeHandler) Run(jc *Context) error {
	var payload TranscribePayload
	if err := jc.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	jc.Progress("load", 10)
	lecture, err := h.lectures.GetByID(jc.Ctx, nil, payload.LectureID)
	if err != nil {
		return fmt.Errorf("load lecture: %w", err)
	}
	if lecture == nil {
		return fmt.Errorf("lecture %s not found", payload.LectureID)
	}

	jc.Progress("transcribe", 30)
	result, err := h.client.Generate(jc.Ctx, llm.Prompt{
		System: transcribeSystemPrompt,
		User:   "Transcribe this image.",
		Images: []llm.ImageInput{{ImageURL: payload.ImageURL, Detail: payload.Detail}},
	})
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return fmt.Errorf("transcription produced no text")
	}

	jc.Progress("store", 90)
	combined := lecture.RawText
	if combined != "" {
		combined += "\n\n"
	}
	combined += text
	if err := h.lectures.UpdateFields(jc.Ctx, nil, lecture.ID, map[string]interface{}{"raw_text": combined}); err != nil {
		return fmt.Errorf("store transcription: %w", err)
	}

	jc.Complete(map[string]any{
		"lecture_id": lecture.ID,
		"text":       text,
	})
	return nil
}
