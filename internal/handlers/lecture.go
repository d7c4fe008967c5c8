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

type LectureHandler struct {
	log      *logger.Logger
	lectures repos.LectureRepo
	entries  repos.StudyPlanEntryRepo
}

func NewLectureHandler(log *logger.Logger, lectures repos.LectureRepo, entries repos.StudyPlanEntryRepo) *LectureHandler {
	return &LectureHandler{
		log:      log.With("handler", "LectureHandler"),
		lectures: lectures,
		entries:  entries,
	}
}

type createLectureRequest struct {
	Title    string `json:"title" binding:"required"`
	Category string `json:"category"`
	RawText  string `json:"raw_text"`
}

func (h *LectureHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return
	}
	var req createLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	lecture, err := h.lectures.Create(c.Request.Context(), nil, &types.Lecture{
		OwnerUserID: userID,
		Title:       req.Title,
		Category:    req.Category,
		RawText:     req.RawText,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"lecture": lecture})
}

func (h *LectureHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return
	}
	lectureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lecture_id", err)
		return
	}
	lecture, err := h.lectures.GetByIDForOwner(c.Request.Context(), nil, lectureID, userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	if lecture == nil {
		RespondError(c, http.StatusNotFound, "not_found", errors.New("lecture not found"))
		return
	}
	RespondOK(c, gin.H{"lecture": lecture})
}

// Plan returns the lecture's study plan in stored order.
func (h *LectureHandler) Plan(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return
	}
	lectureID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_lecture_id", err)
		return
	}
	lecture, err := h.lectures.GetByIDForOwner(c.Request.Context(), nil, lectureID, userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	if lecture == nil {
		RespondError(c, http.StatusNotFound, "not_found", errors.New("lecture not found"))
		return
	}
	plan, err := h.entries.ListByLecture(c.Request.Context(), nil, lecture.ID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "plan_failed", err)
		return
	}
	RespondOK(c, gin.H{"lecture_id": lecture.ID, "entries": plan})
}
