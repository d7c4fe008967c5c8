package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/middleware"
	"github.com/devBarbar/smart-study-notes-sub002/internal/services"
)

type ReviewHandler struct {
	log           *logger.Logger
	reviewService services.ReviewService
}

func NewReviewHandler(log *logger.Logger, reviewService services.ReviewService) *ReviewHandler {
	return &ReviewHandler{log: log.With("handler", "ReviewHandler"), reviewService: reviewService}
}

type recordReviewRequest struct {
	StudyPlanEntryID uuid.UUID `json:"study_plan_entry_id" binding:"required"`
	Quality          string    `json:"quality" binding:"required"`
	Score            *float64  `json:"score"`
}

func (h *ReviewHandler) Record(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return
	}
	var req recordReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	entry, err := h.reviewService.RecordReview(c.Request.Context(), userID, req.StudyPlanEntryID, req.Quality, req.Score)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "review_failed", err)
		return
	}
	RespondOK(c, gin.H{"entry": entry})
}

func (h *ReviewHandler) Due(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return
	}
	entries, err := h.reviewService.DueEntries(c.Request.Context(), userID, time.Now())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "due_failed", err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}

func (h *ReviewHandler) Daily(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return
	}
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	entries, err := h.reviewService.DailyQuiz(c.Request.Context(), userID, limit, time.Now())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "daily_failed", err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}

func (h *ReviewHandler) Streak(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return
	}
	streak, err := h.reviewService.Streak(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "streak_failed", err)
		return
	}
	RespondOK(c, gin.H{"streak": streak})
}
