package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/services"
)

const (
	defaultPollInterval = 1 * time.Second
	defaultJobTimeout   = 10 * time.Minute
)

// Worker polls the queue and runs handlers. It claims at most one job
// per tick; running multiple workers is safe because claiming is a
// guarded single-row transition.
type Worker struct {
	db           *gorm.DB
	log          *logger.Logger
	repo         repos.JobRepo
	registry     *Registry
	notify       services.JobNotifier
	pollInterval time.Duration
	jobTimeout   time.Duration
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRepo, registry *Registry, notify services.JobNotifier) *Worker {
	return &Worker{
		db:           db,
		log:          baseLog.With("component", "JobWorker"),
		repo:         repo,
		registry:     registry,
		notify:       notify,
		pollInterval: defaultPollInterval,
		jobTimeout:   defaultJobTimeout,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Tick(ctx)
			}
		}
	}()
}

// Tick claims and runs one job if any is pending. Exposed so tests can
// drive the worker without the ticker.
func (w *Worker) Tick(ctx context.Context) {
	job, err := w.repo.ClaimNextPending(ctx, nil)
	if err != nil {
		w.log.Warn("ClaimNextPending failed", "error", err)
		return
	}
	if job == nil {
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	jc := NewContext(jobCtx, w.db, job, w.repo, w.notify, w.log)

	h, ok := w.registry.Get(job.Type)
	if !ok {
		w.log.Warn("No handler registered for job type", "job_type", job.Type, "job_id", job.ID)
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job type %s", job.Type))
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.Type, "panic", r)
				jc.Fail("panic", fmt.Errorf("handler panic: %v", r))
			}
		}()
		if err := h.Run(jc); err != nil {
			jc.Fail(job.Stage, err)
		}
	}()
}
