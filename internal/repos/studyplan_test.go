package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/devBarbar/smart-study-notes-sub002/internal/repos/testutil"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

func TestReplaceForLectureLastWriteWins(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	repo := NewStudyPlanEntryRepo(gdb, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "plan-replace@test.local")
	lecture := testutil.SeedLecture(t, ctx, tx, user.ID, "raw")

	first := []*types.StudyPlanEntry{
		{Title: "Synaptic transmission", ImportanceTier: types.TierCore, PriorityScore: 90, OrderIndex: 0, EaseFactor: 2.5},
		{Title: "Ion channels", ImportanceTier: types.TierHighYield, PriorityScore: 70, OrderIndex: 1, EaseFactor: 2.5},
	}
	if err := repo.ReplaceForLecture(ctx, tx, lecture.ID, first); err != nil {
		t.Fatalf("first replace: %v", err)
	}

	second := []*types.StudyPlanEntry{
		{Title: "Action potentials", ImportanceTier: types.TierCore, PriorityScore: 95, OrderIndex: 0, EaseFactor: 2.5},
	}
	if err := repo.ReplaceForLecture(ctx, tx, lecture.ID, second); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err := repo.ListByLecture(ctx, tx, lecture.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry after rerun, got %d", len(got))
	}
	if got[0].Title != "Action potentials" {
		t.Fatalf("expected second run's entry, got %q", got[0].Title)
	}
	if got[0].LectureID != lecture.ID {
		t.Fatalf("entry not attached to lecture")
	}
}

func TestListByLectureOrdersByOrderIndex(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	repo := NewStudyPlanEntryRepo(gdb, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "plan-order@test.local")
	lecture := testutil.SeedLecture(t, ctx, tx, user.ID, "raw")

	// Seeded out of order on purpose.
	testutil.SeedPlanEntry(t, ctx, tx, lecture.ID, "third", 2)
	testutil.SeedPlanEntry(t, ctx, tx, lecture.ID, "first", 0)
	testutil.SeedPlanEntry(t, ctx, tx, lecture.ID, "second", 1)

	got, err := repo.ListByLecture(ctx, tx, lecture.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Title != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, got[i].Title)
		}
	}
}

func TestUpdateMasteryFields(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	repo := NewStudyPlanEntryRepo(gdb, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "plan-mastery@test.local")
	lecture := testutil.SeedLecture(t, ctx, tx, user.ID, "raw")
	entry := testutil.SeedPlanEntry(t, ctx, tx, lecture.ID, "topic", 0)

	next := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	if err := repo.UpdateMasteryFields(ctx, tx, entry.ID, 72.5, next, 3, 2.6); err != nil {
		t.Fatalf("update mastery: %v", err)
	}

	got, err := repo.GetByID(ctx, tx, entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("entry vanished")
	}
	if got.MasteryScore != 72.5 || got.ReviewCount != 3 || got.EaseFactor != 2.6 {
		t.Fatalf("mastery fields not persisted: %+v", got)
	}
	if got.NextReviewAt == nil || got.NextReviewAt.Unix() != next.Unix() {
		t.Fatalf("next review date not persisted: %v", got.NextReviewAt)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	repo := NewStudyPlanEntryRepo(gdb, testutil.Logger(t))

	got, err := repo.GetByID(ctx, tx, uuid.New())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing entry, got %+v", got)
	}
}
