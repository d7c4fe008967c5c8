package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/devBarbar/smart-study-notes-sub002/internal/llm"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/segment"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

const metadataSystemPrompt = `You label study material. Respond with a JSON object only, no prose:
{"title": string, "category": string, "summary": string (2-3 sentences)}`

// metadataMaxTokens bounds the excerpt sent for labeling; metadata does
// not need the whole lecture.
const metadataMaxTokens = 2000

type MetadataHandler struct {
	lectures repos.LectureRepo
	client   llm.Client
}

func NewMetadataHandler(lectures repos.LectureRepo, client llm.Client) *MetadataHandler {
	return &MetadataHandler{lectures: lectures, client: client}
}

func (h *MetadataHandler) Type() string { return types.JobTypeMetadata }

type lectureMetadata struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Summary  string `json:"summary"`
}

func (h *MetadataHandler) Run(jc *Context) error {
	var payload MetadataPayload
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
	if strings.TrimSpace(lecture.RawText) == "" {
		return fmt.Errorf("lecture %s has no text", payload.LectureID)
	}

	jc.Progress("extract", 40)
	excerpt := segment.TruncateToTokenLimit(lecture.RawText, metadataMaxTokens)
	result, err := h.client.Generate(jc.Ctx, llm.Prompt{
		System: metadataSystemPrompt,
		User:   excerpt,
	})
	if err != nil {
		return fmt.Errorf("extract metadata: %w", err)
	}

	meta := parseMetadata(result.Text)
	if meta == nil {
		return fmt.Errorf("unparseable metadata response")
	}

	jc.Progress("store", 90)
	updates := map[string]interface{}{}
	if strings.TrimSpace(meta.Title) != "" {
		updates["title"] = strings.TrimSpace(meta.Title)
	}
	if strings.TrimSpace(meta.Category) != "" {
		updates["category"] = strings.TrimSpace(meta.Category)
	}
	if strings.TrimSpace(meta.Summary) != "" {
		updates["summary"] = strings.TrimSpace(meta.Summary)
	}
	if len(updates) > 0 {
		if err := h.lectures.UpdateFields(jc.Ctx, nil, lecture.ID, updates); err != nil {
			return fmt.Errorf("store metadata: %w", err)
		}
	}

	jc.Complete(meta)
	return nil
}

func parseMetadata(raw string) *lectureMetadata {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil
	}
	var m lectureMetadata
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &m); err != nil {
		return nil
	}
	return &m
}
