package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos/testutil"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

func examTestRouter(t *testing.T, userID uuid.UUID) (*gin.Engine, repos.PracticeExamRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	testutil.CleanTables(t, gdb, "practice_exam_response", "practice_exam_question", "practice_exam", "lecture", "user")

	examRepo := repos.NewPracticeExamRepo(gdb, log)
	handler := NewExamHandler(log, examRepo)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("auth_user_id", userID)
	})
	router.GET("/api/exams/:id", handler.Get)
	router.POST("/api/exams/:id/start", handler.Start)
	return router, examRepo
}

func seedExam(t *testing.T, examRepo repos.PracticeExamRepo, ownerID uuid.UUID, status string) (*types.PracticeExam, []*types.PracticeExamQuestion) {
	t.Helper()
	ctx := context.Background()
	gdb := testutil.DB(t)

	lecture := testutil.SeedLecture(t, ctx, gdb, ownerID, "raw")
	exam, err := examRepo.CreateWithQuestions(ctx, nil,
		&types.PracticeExam{LectureID: lecture.ID, OwnerUserID: ownerID, Title: "Neuro quiz"},
		[]*types.PracticeExamQuestion{
			{Prompt: "Explain long-term potentiation.", MaxPoints: 10},
			{Prompt: "Name the parts of a neuron.", MaxPoints: 5},
		},
	)
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}
	if status != types.ExamStatusPending {
		if err := examRepo.UpdateStatus(ctx, nil, exam.ID, status); err != nil {
			t.Fatalf("set status: %v", err)
		}
		exam.Status = status
	}
	questions, err := examRepo.ListQuestions(ctx, nil, exam.ID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	return exam, questions
}

func TestGetExamReturnsQuestionsAndResponses(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, ctx, gdb, "exam-get@test.local")
	router, examRepo := examTestRouter(t, user.ID)

	exam, questions := seedExam(t, examRepo, user.ID, types.ExamStatusReady)
	now := time.Now()
	if err := examRepo.UpsertResponse(ctx, nil, &types.PracticeExamResponse{
		PracticeExamQuestionID: questions[0].ID,
		AnswerText:             "repeated stimulation strengthens the synapse",
		Score:                  8,
		ResponseQuality:        types.ResponseQualityCorrect,
		GradedAt:               &now,
	}); err != nil {
		t.Fatalf("seed response: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/exams/"+exam.ID.String(), nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Exam      types.PracticeExam           `json:"exam"`
		Questions []types.PracticeExamQuestion `json:"questions"`
		Responses []types.PracticeExamResponse `json:"responses"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Exam.ID != exam.ID {
		t.Fatalf("wrong exam: %s", body.Exam.ID)
	}
	if len(body.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(body.Questions))
	}
	if body.Questions[0].ID == uuid.Nil {
		t.Fatalf("question ids must be exposed for answering")
	}
	if len(body.Responses) != 1 || body.Responses[0].PracticeExamQuestionID != questions[0].ID {
		t.Fatalf("graded responses must be included: %+v", body.Responses)
	}
}

func TestGetExamHidesOtherOwners(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	viewer := testutil.SeedUser(t, ctx, gdb, "exam-viewer@test.local")
	router, examRepo := examTestRouter(t, viewer.ID)

	owner := testutil.SeedUser(t, ctx, gdb, "exam-owner@test.local")
	exam, _ := seedExam(t, examRepo, owner.ID, types.ExamStatusReady)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/exams/"+exam.ID.String(), nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign exam must read as missing, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetExamRejectsBadID(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, ctx, gdb, "exam-badid@test.local")
	router, _ := examTestRouter(t, user.ID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/exams/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
}

func TestStartExamTransitions(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, ctx, gdb, "exam-start@test.local")
	router, examRepo := examTestRouter(t, user.ID)

	exam, _ := seedExam(t, examRepo, user.ID, types.ExamStatusReady)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/exams/"+exam.ID.String()+"/start", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	got, err := examRepo.GetByID(ctx, nil, exam.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != types.ExamStatusInProgress {
		t.Fatalf("expected in_progress, got %q", got.Status)
	}

	// Starting again is a no-op, not an error.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/exams/"+exam.ID.String()+"/start", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("restart status %d: %s", w.Code, w.Body.String())
	}
}

func TestStartExamRejectsWrongStatus(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	user := testutil.SeedUser(t, ctx, gdb, "exam-start-pending@test.local")
	router, examRepo := examTestRouter(t, user.ID)

	for _, status := range []string{types.ExamStatusPending, types.ExamStatusCompleted, types.ExamStatusFailed} {
		exam, _ := seedExam(t, examRepo, user.ID, status)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/exams/"+exam.ID.String()+"/start", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Fatalf("status %q must not be startable, got %d", status, w.Code)
		}
		got, err := examRepo.GetByID(ctx, nil, exam.ID)
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if got.Status != status {
			t.Fatalf("rejected start must not change status: %q -> %q", status, got.Status)
		}
	}
}
