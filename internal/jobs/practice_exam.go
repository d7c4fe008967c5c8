package jobs

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/devBarbar/smart-study-notes-sub002/internal/llm"
	"github.com/devBarbar/smart-study-notes-sub002/internal/mastery"
	"github.com/devBarbar/smart-study-notes-sub002/internal/planner"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

const defaultExamQuestionCount = 10

const examSystemPrompt = `You write practice exam questions for a study topic. Respond with a
JSON array only, no prose. Each element:
{"prompt": string, "model_answer": string, "max_points": number}`

// PracticeExamHandler builds an exam from the lecture's plan, weighting
// topics that are due for review or weakly mastered.
type PracticeExamHandler struct {
	lectures repos.LectureRepo
	entries  repos.StudyPlanEntryRepo
	exams    repos.PracticeExamRepo
	client   llm.Client
	cfg      mastery.Config
}

func NewPracticeExamHandler(lectures repos.LectureRepo, entries repos.StudyPlanEntryRepo, exams repos.PracticeExamRepo, client llm.Client, cfg mastery.Config) *PracticeExamHandler {
	return &PracticeExamHandler{lectures: lectures, entries: entries, exams: exams, client: client, cfg: cfg}
}

func (h *PracticeExamHandler) Type() string { return types.JobTypePracticeExam }

type examQuestionItem struct {
	Prompt      string   `json:"prompt"`
	ModelAnswer string   `json:"model_answer"`
	MaxPoints   *float64 `json:"max_points"`
}

func (h *PracticeExamHandler) Run(jc *Context) error {
	var payload PracticeExamPayload
	if err := jc.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	count := payload.QuestionCount
	if count <= 0 {
		count = defaultExamQuestionCount
	}

	jc.Progress("select", 10)
	lecture, err := h.lectures.GetByID(jc.Ctx, nil, payload.LectureID)
	if err != nil {
		return fmt.Errorf("load lecture: %w", err)
	}
	if lecture == nil {
		return fmt.Errorf("lecture %s not found", payload.LectureID)
	}

	all, err := h.entries.ListByLecture(jc.Ctx, nil, lecture.ID)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	if len(all) == 0 {
		return fmt.Errorf("lecture %s has no study plan to examine", lecture.ID)
	}

	selected := h.cfg.SelectDailyQuizItems(all, count, time.Now())
	if len(selected) == 0 {
		selected = all
		if len(selected) > count {
			selected = selected[:count]
		}
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = "Practice exam: " + lecture.Title
	}
	exam := &types.PracticeExam{
		LectureID:   lecture.ID,
		OwnerUserID: jc.Job.OwnerUserID,
		Title:       title,
		Status:      types.ExamStatusPending,
	}

	questions := make([]*types.PracticeExamQuestion, 0, count)
	for i, entry := range selected {
		pct := 10 + (80*(i+1))/len(selected)
		jc.Progress(fmt.Sprintf("generate %d/%d", i+1, len(selected)), pct)

		result, err := h.client.Generate(jc.Ctx, llm.Prompt{
			System: examSystemPrompt,
			User:   examUserPrompt(entry),
		})
		if err != nil {
			return fmt.Errorf("generate questions for %q: %w", entry.Title, err)
		}

		entryID := entry.ID
		for _, item := range parseExamQuestions(result.Text) {
			if len(questions) >= count {
				break
			}
			questions = append(questions, &types.PracticeExamQuestion{
				StudyPlanEntryID: &entryID,
				Prompt:           item.Prompt,
				ModelAnswer:      item.ModelAnswer,
				MaxPoints:        maxPointsOrDefault(item.MaxPoints),
			})
		}
		if len(questions) >= count {
			break
		}
	}
	if len(questions) == 0 {
		return fmt.Errorf("no usable questions generated for lecture %s", lecture.ID)
	}

	jc.Progress("store", 95)
	exam, err = h.exams.CreateWithQuestions(jc.Ctx, nil, exam, questions)
	if err != nil {
		return fmt.Errorf("store exam: %w", err)
	}
	if err := h.exams.UpdateStatus(jc.Ctx, nil, exam.ID, types.ExamStatusReady); err != nil {
		return fmt.Errorf("mark exam ready: %w", err)
	}

	jc.Complete(map[string]any{
		"practice_exam_id": exam.ID,
		"question_count":   len(questions),
	})
	return nil
}

func examUserPrompt(entry *types.StudyPlanEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", entry.Title)
	if entry.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", entry.Description)
	}
	if len(entry.KeyConcepts) > 0 {
		var concepts []string
		if json.Unmarshal(entry.KeyConcepts, &concepts) == nil && len(concepts) > 0 {
			fmt.Fprintf(&b, "Key concepts: %s\n", strings.Join(concepts, ", "))
		}
	}
	b.WriteString("Write 1-2 exam questions for this topic.")
	return b.String()
}

// parseExamQuestions tolerates code fences and surrounding prose the
// same way the plan parser does; an unusable response yields nothing
// rather than a synthetic question.
func parseExamQuestions(raw string) []examQuestionItem {
	cleaned := planner.StripJSONArray(raw)
	if cleaned == "" {
		return nil
	}
	var items []examQuestionItem
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil
	}
	out := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.Prompt) == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

// maxPointsOrDefault rounds the model's point value to the nearest
// whole point; anything that rounds below 1 falls back to the default
// so no question can be worth zero.
func maxPointsOrDefault(v *float64) int {
	if v == nil {
		return 10
	}
	n := int(math.Round(*v))
	if n < 1 {
		return 10
	}
	return n
}
