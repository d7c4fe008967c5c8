package repos

import (
	"context"
	"testing"
	"time"

	"github.com/devBarbar/smart-study-notes-sub002/internal/repos/testutil"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	repo := NewStreakRepo(gdb, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "streak-create@test.local")

	first, err := repo.GetOrCreate(ctx, tx, user.ID)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	if first.Current != 0 || first.Longest != 0 || first.LastReviewDate != nil {
		t.Fatalf("fresh streak must be zeroed: %+v", first)
	}

	second, err := repo.GetOrCreate(ctx, tx, user.ID)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same row, got %s and %s", first.ID, second.ID)
	}
}

func TestSaveEnforcesLongestFloor(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	repo := NewStreakRepo(gdb, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, "streak-save@test.local")

	streak, err := repo.GetOrCreate(ctx, tx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	today := time.Now()
	streak.Current = 7
	streak.Longest = 3
	streak.LastReviewDate = &today
	if err := repo.Save(ctx, tx, streak); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.GetOrCreate(ctx, tx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Current != 7 {
		t.Fatalf("current not persisted: %d", got.Current)
	}
	if got.Longest != 7 {
		t.Fatalf("longest must be raised to current, got %d", got.Longest)
	}
	if got.LastReviewDate == nil {
		t.Fatalf("last review date not persisted")
	}

	// A reset back to 1 keeps the record high.
	got.Current = 1
	if err := repo.Save(ctx, tx, got); err != nil {
		t.Fatalf("save reset: %v", err)
	}
	got, err = repo.GetOrCreate(ctx, tx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Current != 1 || got.Longest != 7 {
		t.Fatalf("reset must not lower longest: current=%d longest=%d", got.Current, got.Longest)
	}
}
