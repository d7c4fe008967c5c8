package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devBarbar/smart-study-notes-sub002/internal/llm"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/services"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

const gradeSystemPrompt = `You grade a student's answer to an exam question. Respond with a JSON
object only, no prose:
{"score": number (0 to max_points), "quality": "correct"|"partial"|"incorrect",
 "feedback": string}`

// GradeHandler scores submitted exam answers and feeds each outcome
// into the review pipeline so mastery and streaks move with exam
// performance. Regrading an answer overwrites the stored response.
type GradeHandler struct {
	exams   repos.PracticeExamRepo
	reviews services.ReviewService
	client  llm.Client
}

func NewGradeHandler(exams repos.PracticeExamRepo, reviews services.ReviewService, client llm.Client) *GradeHandler {
	return &GradeHandler{exams: exams, reviews: reviews, client: client}
}

func (h *GradeHandler) Type() string { return types.JobTypeGrade }

type gradeVerdict struct {
	Score    *float64 `json:"score"`
	Quality  string   `json:"quality"`
	Feedback string   `json:"feedback"`
}

func (h *GradeHandler) Run(jc *Context) error {
	var payload GradePayload
	if err := jc.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	jc.Progress("load", 5)
	exam, err := h.exams.GetByID(jc.Ctx, nil, payload.PracticeExamID)
	if err != nil {
		return fmt.Errorf("load exam: %w", err)
	}
	if exam == nil {
		return fmt.Errorf("practice exam %s not found", payload.PracticeExamID)
	}
	if exam.OwnerUserID != jc.Job.OwnerUserID {
		return fmt.Errorf("practice exam %s does not belong to job owner", exam.ID)
	}

	questions, err := h.exams.ListQuestions(jc.Ctx, nil, exam.ID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[uuid.UUID]*types.PracticeExamQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	graded := 0
	totalScore := 0.0
	for i, answer := range payload.Answers {
		pct := 5 + (85*(i+1))/len(payload.Answers)
		jc.Progress(fmt.Sprintf("grade %d/%d", i+1, len(payload.Answers)), pct)

		question, ok := byID[answer.QuestionID]
		if !ok {
			return fmt.Errorf("question %s is not part of exam %s", answer.QuestionID, exam.ID)
		}

		verdict, err := h.gradeOne(jc, question, answer.AnswerText)
		if err != nil {
			return fmt.Errorf("grade question %s: %w", question.ID, err)
		}

		now := time.Now()
		score := 0.0
		if verdict.Score != nil {
			score = clampToMax(*verdict.Score, float64(question.MaxPoints))
		}
		if err := h.exams.UpsertResponse(jc.Ctx, nil, &types.PracticeExamResponse{
			PracticeExamQuestionID: question.ID,
			AnswerText:             answer.AnswerText,
			Score:                  score,
			ResponseQuality:        verdict.Quality,
			Feedback:               verdict.Feedback,
			GradedAt:               &now,
		}); err != nil {
			return fmt.Errorf("store response: %w", err)
		}

		if question.StudyPlanEntryID != nil {
			normalized := normalizedScore(score, question.MaxPoints)
			if _, err := h.reviews.RecordExamReview(jc.Ctx, exam.OwnerUserID, *question.StudyPlanEntryID, question.ID, verdict.Quality, &normalized); err != nil {
				return fmt.Errorf("record review for entry %s: %w", *question.StudyPlanEntryID, err)
			}
		}

		graded++
		totalScore += score
	}

	jc.Progress("finalize", 95)
	if err := h.exams.UpdateStatus(jc.Ctx, nil, exam.ID, types.ExamStatusCompleted); err != nil {
		return fmt.Errorf("mark exam completed: %w", err)
	}

	jc.Complete(map[string]any{
		"practice_exam_id": exam.ID,
		"graded_count":     graded,
		"total_score":      totalScore,
	})
	return nil
}

func (h *GradeHandler) gradeOne(jc *Context, question *types.PracticeExamQuestion, answerText string) (*gradeVerdict, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question (max_points=%d): %s\n", question.MaxPoints, question.Prompt)
	if question.ModelAnswer != "" {
		fmt.Fprintf(&b, "Reference answer: %s\n", question.ModelAnswer)
	}
	if strings.TrimSpace(answerText) == "" {
		return &gradeVerdict{Quality: types.ResponseQualitySkipped, Feedback: "No answer submitted."}, nil
	}
	fmt.Fprintf(&b, "Student answer: %s\n", answerText)

	result, err := h.client.Generate(jc.Ctx, llm.Prompt{
		System: gradeSystemPrompt,
		User:   b.String(),
	})
	if err != nil {
		return nil, err
	}

	verdict := parseVerdict(result.Text)
	if verdict == nil {
		return nil, fmt.Errorf("unparseable grading response")
	}
	return verdict, nil
}

func parseVerdict(raw string) *gradeVerdict {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil
	}

	var v gradeVerdict
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &v); err != nil {
		return nil
	}
	switch v.Quality {
	case types.ResponseQualityCorrect, types.ResponseQualityPartial, types.ResponseQualityIncorrect, types.ResponseQualitySkipped:
	default:
		v.Quality = types.ResponseQualityPartial
	}
	return &v
}

func clampToMax(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// normalizedScore rescales an exam score onto the 0-100 retention scale
// the mastery engine works in.
func normalizedScore(score float64, maxPoints int) float64 {
	if maxPoints <= 0 {
		return 0
	}
	return clampToMax(score/float64(maxPoints), 1) * 100
}
