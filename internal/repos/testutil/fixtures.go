package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:       uuid.New(),
		Email:    email,
		Password: "pw",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedLecture(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, rawText string) *types.Lecture {
	tb.Helper()
	l := &types.Lecture{
		ID:          uuid.New(),
		OwnerUserID: ownerID,
		Title:       "lecture",
		RawText:     rawText,
		Status:      "uploaded",
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lecture: %v", err)
	}
	return l
}

func SeedJob(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, jobType string, payload string) *types.Job {
	tb.Helper()
	j := &types.Job{
		ID:          uuid.New(),
		OwnerUserID: ownerID,
		Type:        jobType,
		Status:      types.JobStatusPending,
		Payload:     datatypes.JSON([]byte(payload)),
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return j
}

func SeedPlanEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, lectureID uuid.UUID, title string, orderIndex int) *types.StudyPlanEntry {
	tb.Helper()
	e := &types.StudyPlanEntry{
		ID:             uuid.New(),
		LectureID:      lectureID,
		Title:          title,
		ImportanceTier: types.TierCore,
		PriorityScore:  90,
		OrderIndex:     orderIndex,
		EaseFactor:     2.5,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed plan entry: %v", err)
	}
	return e
}

func SeedReviewEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, entryID uuid.UUID, quality string, reviewedAt time.Time) *types.ReviewEvent {
	tb.Helper()
	ev := &types.ReviewEvent{
		ID:               uuid.New(),
		StudyPlanEntryID: entryID,
		ResponseQuality:  quality,
		ReviewedAt:       reviewedAt,
	}
	if err := tx.WithContext(ctx).Create(ev).Error; err != nil {
		tb.Fatalf("seed review event: %v", err)
	}
	return ev
}
