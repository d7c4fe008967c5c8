package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/services"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

// Context is the execution handle for one claimed job. Handlers report
// progress and terminate through it; they never write the job row
// directly. Terminal transitions that lose a race are logged no-ops,
// never retried and never treated as corruption.
type Context struct {
	Ctx    context.Context
	DB     *gorm.DB
	Job    *types.Job
	Repo   repos.JobRepo
	Notify services.JobNotifier
	Log    *logger.Logger
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.Job, repo repos.JobRepo, notify services.JobNotifier, log *logger.Logger) *Context {
	return &Context{
		Ctx:    ctx,
		DB:     db,
		Job:    job,
		Repo:   repo,
		Notify: notify,
		Log:    log.With("job_id", job.ID, "job_type", job.Type),
	}
}

// DecodePayload decodes the job's payload into the typed struct for its
// job type. Enqueue-time validation makes failure here unexpected.
func (jc *Context) DecodePayload(out any) error {
	return json.Unmarshal(jc.Job.Payload, out)
}

// Progress persists a stage/percent update and notifies the owner. A
// job no longer running silently ignores the update.
func (jc *Context) Progress(stage string, pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	err := jc.Repo.UpdateProgress(jc.Ctx, nil, jc.Job.ID, stage, pct)
	if err != nil {
		if !errors.Is(err, repos.ErrConcurrencyViolation) {
			jc.Log.Warn("Failed to persist job progress", "stage", stage, "error", err)
		}
		return
	}
	jc.Job.Stage = stage
	jc.Job.Progress = pct
	jc.Job.UpdatedAt = time.Now()
	if jc.Notify != nil {
		jc.Notify.JobProgress(jc.Job.OwnerUserID, jc.Job, stage, pct)
	}
}

// Complete marks the job completed and stores the result JSON.
func (jc *Context) Complete(result any) {
	var res datatypes.JSON
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			jc.Fail("finalize", err)
			return
		}
		res = datatypes.JSON(b)
	}

	if err := jc.Repo.MarkCompleted(jc.Ctx, nil, jc.Job.ID, res); err != nil {
		if errors.Is(err, repos.ErrConcurrencyViolation) {
			jc.Log.Warn("Completion skipped; job already left running state")
		} else {
			jc.Log.Error("Failed to mark job completed", "error", err)
		}
		return
	}

	now := time.Now()
	jc.Job.Status = types.JobStatusCompleted
	jc.Job.Progress = 100
	jc.Job.Result = res
	jc.Job.FinishedAt = &now
	jc.Job.UpdatedAt = now
	if jc.Notify != nil {
		jc.Notify.JobDone(jc.Job.OwnerUserID, jc.Job)
	}
}

// Fail marks the job failed with the stage it died in and the error
// message.
func (jc *Context) Fail(stage string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	if ferr := jc.Repo.MarkFailed(jc.Ctx, nil, jc.Job.ID, msg); ferr != nil {
		if errors.Is(ferr, repos.ErrConcurrencyViolation) {
			jc.Log.Warn("Failure skipped; job already left running state", "stage", stage)
		} else {
			jc.Log.Error("Failed to mark job failed", "stage", stage, "error", ferr)
		}
		return
	}

	now := time.Now()
	jc.Job.Status = types.JobStatusFailed
	jc.Job.Stage = stage
	jc.Job.Error = msg
	jc.Job.FinishedAt = &now
	jc.Job.UpdatedAt = now
	if jc.Notify != nil {
		jc.Notify.JobFailed(jc.Job.OwnerUserID, jc.Job, stage, msg)
	}
}
