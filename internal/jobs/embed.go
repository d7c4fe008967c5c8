package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/devBarbar/smart-study-notes-sub002/internal/llm"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/segment"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

// EmbedHandler attaches an embedding vector to every chunk of a
// lecture. Chunks are segmented on demand when the plan pipeline has
// not run yet. Vectors come back in chunk order or not at all.
type EmbedHandler struct {
	lectures repos.LectureRepo
	chunks   repos.LectureChunkRepo
	client   llm.Client
}

func NewEmbedHandler(lectures repos.LectureRepo, chunks repos.LectureChunkRepo, client llm.Client) *EmbedHandler {
	return &EmbedHandler{lectures: lectures, chunks: chunks, client: client}
}

func (h *EmbedHandler) Type() string { return types.JobTypeEmbed }

func (h *EmbedHandler) Run(jc *Context) error {
	var payload EmbedPayload
	if err := jc.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	jc.Progress("load", 5)
	lecture, err := h.lectures.GetByID(jc.Ctx, nil, payload.LectureID)
	if err != nil {
		return fmt.Errorf("load lecture: %w", err)
	}
	if lecture == nil {
		return fmt.Errorf("lecture %s not found", payload.LectureID)
	}

	rows, err := h.chunks.ListByLecture(jc.Ctx, nil, lecture.ID)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	if len(rows) == 0 {
		if strings.TrimSpace(lecture.RawText) == "" {
			return fmt.Errorf("lecture %s has no text to embed", payload.LectureID)
		}
		jc.Progress("segment", 15)
		for _, text := range segment.Chunk(lecture.RawText, segment.DefaultMaxChars, segment.DefaultOverlapChars) {
			rows = append(rows, &types.LectureChunk{Text: text})
		}
		if err := h.chunks.ReplaceForLecture(jc.Ctx, nil, lecture.ID, rows); err != nil {
			return fmt.Errorf("store chunks: %w", err)
		}
	}

	texts := make([]string, len(rows))
	for i, c := range rows {
		texts[i] = c.Text
	}

	jc.Progress("embed", 40)
	result, err := h.client.Embed(jc.Ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(result.Embeddings) != len(rows) {
		return fmt.Errorf("embed returned %d vectors for %d chunks", len(result.Embeddings), len(rows))
	}

	jc.Progress("store", 80)
	for i, c := range rows {
		raw, err := json.Marshal(result.Embeddings[i])
		if err != nil {
			return fmt.Errorf("encode vector %d: %w", i, err)
		}
		if err := h.chunks.UpdateEmbedding(jc.Ctx, nil, c.ID, datatypes.JSON(raw), result.Model); err != nil {
			return fmt.Errorf("store vector %d: %w", i, err)
		}
	}

	jc.Complete(map[string]any{
		"lecture_id":  lecture.ID,
		"chunk_count": len(rows),
		"model":       result.Model,
	})
	return nil
}
