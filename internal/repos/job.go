package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

// ErrConcurrencyViolation is returned when a lifecycle transition is
// attempted on a job that is not in the expected state. Callers treat it
// as a logged no-op, never as data corruption.
var ErrConcurrencyViolation = errors.New("job is not in the expected state for this transition")

type JobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.Job) (*types.Job, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Job, error)
	GetByIDForOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerUserID uuid.UUID) (*types.Job, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID, limit int) ([]*types.Job, error)
	// ClaimNextPending atomically selects the oldest pending job and
	// transitions it to running. Returns (nil, nil) when the queue is
	// empty. No two concurrent callers can claim the same job.
	ClaimNextPending(ctx context.Context, tx *gorm.DB) (*types.Job, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, result datatypes.JSON) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, errMsg string) error
	UpdateProgress(ctx context.Context, tx *gorm.DB, id uuid.UUID, stage string, progress int) error
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{db: db, log: baseLog.With("repo", "JobRepo")}
}

func (r *jobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.Job) (*types.Job, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil {
		return nil, errors.New("nil job")
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = types.JobStatusPending
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Job, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.Job
	err := transaction.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRepo) GetByIDForOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerUserID uuid.UUID) (*types.Job, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.Job
	err := transaction.WithContext(ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Limit(1).Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID, limit int) ([]*types.Job, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.Job
	err := transaction.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ClaimNextPending picks the oldest pending row, then performs a
// conditional single-row update guarded on status. When the guard loses a
// race to another worker, RowsAffected is zero and the select is retried
// against the next candidate.
func (r *jobRepo) ClaimNextPending(ctx context.Context, tx *gorm.DB) (*types.Job, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var job types.Job
		err := transaction.WithContext(ctx).
			Where("status = ?", types.JobStatusPending).
			Order("created_at ASC").
			Limit(1).
			Find(&job).Error
		if err != nil {
			return nil, err
		}
		if job.ID == uuid.Nil {
			return nil, nil
		}

		now := time.Now()
		res := transaction.WithContext(ctx).
			Model(&types.Job{}).
			Where("id = ? AND status = ?", job.ID, types.JobStatusPending).
			Updates(map[string]interface{}{
				"status":     types.JobStatusRunning,
				"stage":      "claimed",
				"claimed_at": now,
				"updated_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race for this row; try the next candidate.
			continue
		}

		job.Status = types.JobStatusRunning
		job.Stage = "claimed"
		job.ClaimedAt = &now
		job.UpdatedAt = now
		return &job, nil
	}
	return nil, nil
}

func (r *jobRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, result datatypes.JSON) error {
	return r.finish(ctx, tx, id, map[string]interface{}{
		"status":   types.JobStatusCompleted,
		"stage":    "done",
		"progress": 100,
		"result":   result,
		"error":    "",
	})
}

func (r *jobRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, errMsg string) error {
	return r.finish(ctx, tx, id, map[string]interface{}{
		"status": types.JobStatusFailed,
		"stage":  "failed",
		"error":  errMsg,
	})
}

// finish transitions running -> terminal. Any other starting state is a
// protocol violation surfaced as ErrConcurrencyViolation.
func (r *jobRepo) finish(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	updates["finished_at"] = now
	updates["updated_at"] = now
	res := transaction.WithContext(ctx).
		Model(&types.Job{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrencyViolation
	}
	return nil
}

func (r *jobRepo) UpdateProgress(ctx context.Context, tx *gorm.DB, id uuid.UUID, stage string, progress int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Job{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Updates(map[string]interface{}{
			"stage":      stage,
			"progress":   progress,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrencyViolation
	}
	return nil
}
