package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

// PayloadValidator is satisfied by the jobs package; injected here to
// keep enqueue validation and handler schemas in one place.
type PayloadValidator func(jobType string, raw []byte) error

// JobService is the enqueue-side API. Rows enter the queue as pending;
// only the worker moves them forward.
type JobService interface {
	Enqueue(ctx context.Context, ownerUserID uuid.UUID, jobType string, payload json.RawMessage) (*types.Job, error)
	GetForOwner(ctx context.Context, ownerUserID, jobID uuid.UUID) (*types.Job, error)
	ListForOwner(ctx context.Context, ownerUserID uuid.UUID, limit int) ([]*types.Job, error)
}

type jobService struct {
	db       *gorm.DB
	log      *logger.Logger
	jobs     repos.JobRepo
	validate PayloadValidator
	notify   JobNotifier
}

func NewJobService(db *gorm.DB, log *logger.Logger, jobs repos.JobRepo, validate PayloadValidator, notify JobNotifier) JobService {
	return &jobService{
		db:       db,
		log:      log.With("service", "JobService"),
		jobs:     jobs,
		validate: validate,
		notify:   notify,
	}
}

func (s *jobService) Enqueue(ctx context.Context, ownerUserID uuid.UUID, jobType string, payload json.RawMessage) (*types.Job, error) {
	if err := s.validate(jobType, payload); err != nil {
		return nil, err
	}

	job, err := s.jobs.Create(ctx, nil, &types.Job{
		OwnerUserID: ownerUserID,
		Type:        jobType,
		Status:      types.JobStatusPending,
		Payload:     datatypes.JSON(payload),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Job enqueued", "job_id", job.ID, "job_type", jobType, "owner", ownerUserID)
	if s.notify != nil {
		s.notify.JobCreated(ownerUserID, job)
	}
	return job, nil
}

func (s *jobService) GetForOwner(ctx context.Context, ownerUserID, jobID uuid.UUID) (*types.Job, error) {
	return s.jobs.GetByIDForOwner(ctx, nil, jobID, ownerUserID)
}

func (s *jobService) ListForOwner(ctx context.Context, ownerUserID uuid.UUID, limit int) ([]*types.Job, error) {
	return s.jobs.ListByOwner(ctx, nil, ownerUserID, limit)
}
