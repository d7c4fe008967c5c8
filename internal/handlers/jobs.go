package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/devBarbar/smart-study-notes-sub002/internal/jobs"
	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/middleware"
	"github.com/devBarbar/smart-study-notes-sub002/internal/services"
)

type JobsHandler struct {
	log        *logger.Logger
	jobService services.JobService
}

func NewJobsHandler(log *logger.Logger, jobService services.JobService) *JobsHandler {
	return &JobsHandler{log: log.With("handler", "JobsHandler"), jobService: jobService}
}

type enqueueRequest struct {
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

func (h *JobsHandler) Enqueue(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return
	}

	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	job, err := h.jobService.Enqueue(c.Request.Context(), userID, req.Type, req.Payload)
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidType) || errors.Is(err, jobs.ErrInvalidPayload) {
			RespondError(c, http.StatusBadRequest, "invalid_job", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"job_id": job.ID, "job": job})
}

func (h *JobsHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}

	job, err := h.jobService.GetForOwner(c.Request.Context(), userID, jobID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	if job == nil {
		RespondError(c, http.StatusNotFound, "not_found", errors.New("job not found"))
		return
	}
	RespondOK(c, gin.H{"job": job})
}

func (h *JobsHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing user"))
		return
	}
	jobList, err := h.jobService.ListForOwner(c.Request.Context(), userID, 100)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"jobs": jobList})
}
