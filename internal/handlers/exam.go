package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/middleware"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

type ExamHandler struct {
	log   *logger.Logger
	exams repos.PracticeExamRepo
}

func NewExamHandler(log *logger.Logger, exams repos.PracticeExamRepo) *ExamHandler {
	return &ExamHandler{log: log.With("handler", "ExamHandler"), exams: exams}
}

// Get returns the exam with its questions, and with the graded
// responses once a grade job has run. Question ids from here are what a
// grade job's answers refer to.
func (h *ExamHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return
	}
	exam, ok := h.loadOwned(c, userID)
	if !ok {
		return
	}
	questions, err := h.exams.ListQuestions(c.Request.Context(), nil, exam.ID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "questions_failed", err)
		return
	}
	responses, err := h.exams.ListResponses(c.Request.Context(), nil, exam.ID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "responses_failed", err)
		return
	}
	RespondOK(c, gin.H{"exam": exam, "questions": questions, "responses": responses})
}

// Start moves a ready exam to in_progress. Starting an exam that is
// already in progress is a no-op; an exam still generating or already
// completed cannot be started.
func (h *ExamHandler) Start(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return
	}
	exam, ok := h.loadOwned(c, userID)
	if !ok {
		return
	}

	switch exam.Status {
	case types.ExamStatusInProgress:
		RespondOK(c, gin.H{"exam": exam})
		return
	case types.ExamStatusReady:
	default:
		RespondError(c, http.StatusConflict, "exam_not_startable",
			errors.New("exam cannot be started from status "+exam.Status))
		return
	}

	if err := h.exams.UpdateStatus(c.Request.Context(), nil, exam.ID, types.ExamStatusInProgress); err != nil {
		RespondError(c, http.StatusInternalServerError, "start_failed", err)
		return
	}
	exam.Status = types.ExamStatusInProgress
	RespondOK(c, gin.H{"exam": exam})
}

func (h *ExamHandler) loadOwned(c *gin.Context, userID uuid.UUID) (*types.PracticeExam, bool) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_exam_id", err)
		return nil, false
	}
	exam, err := h.exams.GetByID(c.Request.Context(), nil, examID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return nil, false
	}
	if exam == nil || exam.OwnerUserID != userID {
		RespondError(c, http.StatusNotFound, "not_found", errors.New("practice exam not found"))
		return nil, false
	}
	return exam, true
}
