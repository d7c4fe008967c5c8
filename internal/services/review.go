package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/mastery"
	"github.com/devBarbar/smart-study-notes-sub002/internal/repos"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

var validQualities = map[string]bool{
	types.ResponseQualityCorrect:   true,
	types.ResponseQualityPartial:   true,
	types.ResponseQualityIncorrect: true,
	types.ResponseQualitySkipped:   true,
}

// ReviewService records review outcomes and keeps the derived state
// consistent: the append-only event log, the mastery fields on the plan
// entry, and the user's streak.
type ReviewService interface {
	// RecordReview appends an event for the entry and recomputes its
	// mastery score, next review date and ease factor. score may be nil.
	RecordReview(ctx context.Context, userID, entryID uuid.UUID, quality string, score *float64) (*types.StudyPlanEntry, error)
	// RecordExamReview records the outcome of grading one exam answer.
	// Re-grading the same question replaces the earlier event rather
	// than stacking a duplicate, and does not inflate the review count.
	RecordExamReview(ctx context.Context, userID, entryID, questionID uuid.UUID, quality string, score *float64) (*types.StudyPlanEntry, error)
	DueEntries(ctx context.Context, userID uuid.UUID, now time.Time) ([]*types.StudyPlanEntry, error)
	DailyQuiz(ctx context.Context, userID uuid.UUID, limit int, now time.Time) ([]*types.StudyPlanEntry, error)
	Streak(ctx context.Context, userID uuid.UUID) (*types.StreakInfo, error)
}

type reviewService struct {
	log     *logger.Logger
	entries repos.StudyPlanEntryRepo
	events  repos.ReviewEventRepo
	streaks repos.StreakRepo
	cfg     mastery.Config
}

func NewReviewService(baseLog *logger.Logger, entries repos.StudyPlanEntryRepo, events repos.ReviewEventRepo, streaks repos.StreakRepo, cfg mastery.Config) ReviewService {
	return &reviewService{
		log:     baseLog.With("service", "ReviewService"),
		entries: entries,
		events:  events,
		streaks: streaks,
		cfg:     cfg,
	}
}

func (s *reviewService) RecordReview(ctx context.Context, userID, entryID uuid.UUID, quality string, score *float64) (*types.StudyPlanEntry, error) {
	return s.record(ctx, userID, entryID, nil, quality, score)
}

func (s *reviewService) RecordExamReview(ctx context.Context, userID, entryID, questionID uuid.UUID, quality string, score *float64) (*types.StudyPlanEntry, error) {
	return s.record(ctx, userID, entryID, &questionID, quality, score)
}

func (s *reviewService) record(ctx context.Context, userID, entryID uuid.UUID, questionID *uuid.UUID, quality string, score *float64) (*types.StudyPlanEntry, error) {
	if !validQualities[quality] {
		return nil, fmt.Errorf("unknown response quality %q", quality)
	}

	entry, err := s.entries.GetByID(ctx, nil, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("study plan entry %s not found", entryID)
	}

	regrade := false
	if questionID != nil {
		removed, err := s.events.DeleteByQuestion(ctx, nil, *questionID)
		if err != nil {
			return nil, err
		}
		regrade = removed > 0
	}

	now := time.Now()
	if _, err := s.events.Append(ctx, nil, &types.ReviewEvent{
		StudyPlanEntryID:       entry.ID,
		PracticeExamQuestionID: questionID,
		Score:                  score,
		ResponseQuality:        quality,
		ReviewedAt:             now,
	}); err != nil {
		return nil, err
	}

	history, err := s.events.ListRecentByEntry(ctx, nil, entry.ID, s.cfg.HistoryWindow)
	if err != nil {
		return nil, err
	}

	masteryScore := s.cfg.ComputeMasteryScore(history, now)
	easeFactor := s.cfg.NextEaseFactor(entry.EaseFactor, quality)
	reviewCount := entry.ReviewCount
	if !regrade {
		reviewCount++
	}
	nextReview := s.cfg.ComputeNextReviewDate(mastery.ScheduleInput{
		MasteryScore: masteryScore,
		EaseFactor:   easeFactor,
		ReviewCount:  reviewCount,
	}, now)

	if err := s.entries.UpdateMasteryFields(ctx, nil, entry.ID, masteryScore, nextReview, reviewCount, easeFactor); err != nil {
		return nil, err
	}

	if err := s.bumpStreak(ctx, userID, now); err != nil {
		// streak is a motivational aggregate; never fail the review on it
		s.log.Warn("Failed to update streak", "user_id", userID, "error", err)
	}

	entry.MasteryScore = masteryScore
	entry.EaseFactor = easeFactor
	entry.ReviewCount = reviewCount
	entry.NextReviewAt = &nextReview
	return entry, nil
}

// dayOf keys a timestamp to its calendar day in its own location, so a
// review at 23:50 and one at 00:10 land on consecutive days rather than
// sharing or splitting a UTC epoch-day bucket.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// bumpStreak advances the daily streak: same day keeps it, consecutive
// day extends it, any gap resets it to 1.
func (s *reviewService) bumpStreak(ctx context.Context, userID uuid.UUID, now time.Time) error {
	streak, err := s.streaks.GetOrCreate(ctx, nil, userID)
	if err != nil {
		return err
	}

	today := dayOf(now)
	switch {
	case streak.LastReviewDate == nil:
		streak.Current = 1
	case dayOf(streak.LastReviewDate.In(now.Location())).Equal(today):
		// already counted today
	case dayOf(streak.LastReviewDate.In(now.Location())).Equal(today.AddDate(0, 0, -1)):
		streak.Current++
	default:
		streak.Current = 1
	}
	if streak.Current > streak.Longest {
		streak.Longest = streak.Current
	}
	streak.LastReviewDate = &now
	return s.streaks.Save(ctx, nil, streak)
}

func (s *reviewService) DueEntries(ctx context.Context, userID uuid.UUID, now time.Time) ([]*types.StudyPlanEntry, error) {
	all, err := s.entries.ListByOwner(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	return mastery.GetItemsDueForReview(all, now), nil
}

func (s *reviewService) DailyQuiz(ctx context.Context, userID uuid.UUID, limit int, now time.Time) ([]*types.StudyPlanEntry, error) {
	all, err := s.entries.ListByOwner(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	return s.cfg.SelectDailyQuizItems(all, limit, now), nil
}

func (s *reviewService) Streak(ctx context.Context, userID uuid.UUID) (*types.StreakInfo, error) {
	return s.streaks.GetOrCreate(ctx, nil, userID)
}
