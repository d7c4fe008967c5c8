package jobs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/devBarbar/smart-study-notes-sub002/internal/llm"
	"github.com/devBarbar/smart-study-notes-sub002/internal/planner"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/segment"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

const planSystemPrompt = `You are an expert study planner. Given a section of lecture material,
extract the distinct study units a student should master. Respond with a
JSON array only, no prose. Each element:
{"title": string, "description": string, "key_concepts": [string],
 "category": string, "importance_tier": "core"|"high-yield"|"stretch",
 "priority_score": number (0-100), "exam_relevance": "high"|"medium"|"low",
 "from_exam_source": bool, "mentioned_in_notes": bool}`

// PlanHandler turns a lecture's raw text into an ordered study plan.
// Chunks are processed sequentially; every call carries the titles
// already extracted so the model does not repeat topics across chunks.
type PlanHandler struct {
	lectures repos.LectureRepo
	chunks   repos.LectureChunkRepo
	entries  repos.StudyPlanEntryRepo
	client   llm.Client
}

func NewPlanHandler(lectures repos.LectureRepo, chunks repos.LectureChunkRepo, entries repos.StudyPlanEntryRepo, client llm.Client) *PlanHandler {
	return &PlanHandler{lectures: lectures, chunks: chunks, entries: entries, client: client}
}

func (h *PlanHandler) Type() string { return types.JobTypePlan }

func (h *PlanHandler) Run(jc *Context) error {
	var payload PlanPayload
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
	if strings.TrimSpace(lecture.RawText) == "" {
		return fmt.Errorf("lecture %s has no text to plan from", payload.LectureID)
	}

	jc.Progress("segment", 10)
	textChunks := segment.Chunk(lecture.RawText, segment.DefaultMaxChars, segment.DefaultOverlapChars)

	rows := make([]*types.LectureChunk, len(textChunks))
	for i, text := range textChunks {
		rows[i] = &types.LectureChunk{Text: text}
	}
	if err := h.chunks.ReplaceForLecture(jc.Ctx, nil, lecture.ID, rows); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	seenTitles := map[string]bool{}
	parsed := make([][]planner.Candidate, 0, len(textChunks))

	for i, text := range textChunks {
		pct := 10 + (80*(i+1))/len(textChunks)
		jc.Progress(fmt.Sprintf("extract %d/%d", i+1, len(textChunks)), pct)

		result, err := h.client.Generate(jc.Ctx, llm.Prompt{
			System: planSystemPrompt,
			User:   planUserPrompt(text, i, seenTitles),
		})
		if err != nil {
			return fmt.Errorf("extract chunk %d: %w", i, err)
		}

		items := planner.ParseChunkItems(result.Text, i)
		for _, it := range items {
			seenTitles[strings.ToLower(strings.TrimSpace(it.Title))] = true
		}
		parsed = append(parsed, items)
	}

	jc.Progress("merge", 92)
	entries := planner.Merge(parsed)
	for _, e := range entries {
		e.LectureID = lecture.ID
	}
	if err := h.entries.ReplaceForLecture(jc.Ctx, nil, lecture.ID, entries); err != nil {
		return fmt.Errorf("store plan: %w", err)
	}

	_ = h.lectures.UpdateFields(jc.Ctx, nil, lecture.ID, map[string]interface{}{"status": "planned"})

	jc.Complete(map[string]any{
		"lecture_id":  lecture.ID,
		"chunk_count": len(textChunks),
		"entry_count": len(entries),
	})
	return nil
}

func planUserPrompt(chunk string, index int, seenTitles map[string]bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lecture section %d:\n\n%s\n", index+1, chunk)
	if len(seenTitles) > 0 {
		titles := make([]string, 0, len(seenTitles))
		for t := range seenTitles {
			titles = append(titles, t)
		}
		sort.Strings(titles)
		b.WriteString("\nTopics already extracted from earlier sections; do not repeat them:\n")
		for _, t := range titles {
			b.WriteString("- " + t + "\n")
		}
	}
	return b.String()
}
