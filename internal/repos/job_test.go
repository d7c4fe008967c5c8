package repos

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/devBarbar/smart-study-notes-sub002/internal/repos/testutil"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

func seedPendingJob(t *testing.T, repo JobRepo, owner uuid.UUID, createdAt time.Time) *types.Job {
	t.Helper()
	job, err := repo.Create(context.Background(), nil, &types.Job{
		OwnerUserID: owner,
		Type:        types.JobTypePlan,
		Status:      types.JobStatusPending,
		Payload:     datatypes.JSON([]byte(`{"lecture_id":"` + uuid.NewString() + `"}`)),
		CreatedAt:   createdAt,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return job
}

func TestJobLifecycle(t *testing.T) {
	db := testutil.DB(t)
	testutil.CleanTables(t, db, "job")
	ctx := context.Background()
	repo := NewJobRepo(db, testutil.Logger(t))
	owner := uuid.New()

	job := seedPendingJob(t, repo, owner, time.Now())

	got, err := repo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Status != types.JobStatusPending {
		t.Fatalf("expected pending job, got %+v", got)
	}

	claimed, err := repo.ClaimNextPending(ctx, nil)
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("expected to claim %s, got %+v", job.ID, claimed)
	}
	if claimed.Status != types.JobStatusRunning {
		t.Fatalf("claimed job status = %q, want running", claimed.Status)
	}
	if claimed.ClaimedAt == nil {
		t.Fatal("claimed job should carry a claim timestamp")
	}

	if err := repo.UpdateProgress(ctx, nil, job.ID, "extract", 40); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	if err := repo.MarkCompleted(ctx, nil, job.ID, datatypes.JSON([]byte(`{"ok":true}`))); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	final, err := repo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.Status != types.JobStatusCompleted || final.FinishedAt == nil {
		t.Fatalf("expected completed with finish time, got %+v", final)
	}
}

func TestClaimNextPendingEmptyQueue(t *testing.T) {
	db := testutil.DB(t)
	testutil.CleanTables(t, db, "job")
	repo := NewJobRepo(db, testutil.Logger(t))

	job, err := repo.ClaimNextPending(context.Background(), nil)
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil on empty queue, got %+v", job)
	}
}

func TestClaimNextPendingOldestFirst(t *testing.T) {
	db := testutil.DB(t)
	testutil.CleanTables(t, db, "job")
	repo := NewJobRepo(db, testutil.Logger(t))
	owner := uuid.New()

	older := seedPendingJob(t, repo, owner, time.Now().Add(-2*time.Hour))
	seedPendingJob(t, repo, owner, time.Now().Add(-1*time.Hour))

	claimed, err := repo.ClaimNextPending(context.Background(), nil)
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if claimed == nil || claimed.ID != older.ID {
		t.Fatalf("expected oldest job %s, got %+v", older.ID, claimed)
	}
}

func TestClaimNextPendingExactlyOnce(t *testing.T) {
	db := testutil.DB(t)
	testutil.CleanTables(t, db, "job")
	repo := NewJobRepo(db, testutil.Logger(t))
	owner := uuid.New()

	const jobCount = 8
	const workerCount = 4
	for i := 0; i < jobCount; i++ {
		seedPendingJob(t, repo, owner, time.Now().Add(time.Duration(i)*time.Millisecond))
	}

	var mu sync.Mutex
	claims := map[uuid.UUID]int{}
	var wg sync.WaitGroup

	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := repo.ClaimNextPending(context.Background(), nil)
				if err != nil {
					t.Errorf("ClaimNextPending: %v", err)
					return
				}
				if job == nil {
					return
				}
				mu.Lock()
				claims[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(claims) != jobCount {
		t.Fatalf("expected %d distinct claims, got %d", jobCount, len(claims))
	}
	for id, n := range claims {
		if n != 1 {
			t.Fatalf("job %s claimed %d times", id, n)
		}
	}
}

func TestFinishGuardsOnRunningState(t *testing.T) {
	db := testutil.DB(t)
	testutil.CleanTables(t, db, "job")
	ctx := context.Background()
	repo := NewJobRepo(db, testutil.Logger(t))
	owner := uuid.New()

	job := seedPendingJob(t, repo, owner, time.Now())

	// completing a job that was never claimed must be refused
	err := repo.MarkCompleted(ctx, nil, job.ID, nil)
	if !errors.Is(err, ErrConcurrencyViolation) {
		t.Fatalf("expected ErrConcurrencyViolation, got %v", err)
	}

	claimed, err := repo.ClaimNextPending(ctx, nil)
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v %v", claimed, err)
	}
	if err := repo.MarkFailed(ctx, nil, job.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	// second terminal transition loses the guard and the row keeps its state
	if err := repo.MarkCompleted(ctx, nil, job.ID, nil); !errors.Is(err, ErrConcurrencyViolation) {
		t.Fatalf("expected ErrConcurrencyViolation on double finish, got %v", err)
	}
	final, _ := repo.GetByID(ctx, nil, job.ID)
	if final.Status != types.JobStatusFailed || final.Error != "boom" {
		t.Fatalf("terminal state must be preserved, got %+v", final)
	}

	// progress updates on a finished job are refused the same way
	if err := repo.UpdateProgress(ctx, nil, job.ID, "late", 50); !errors.Is(err, ErrConcurrencyViolation) {
		t.Fatalf("expected ErrConcurrencyViolation on late progress, got %v", err)
	}
}
