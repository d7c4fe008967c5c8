package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

type ReviewEventRepo interface {
	// Append inserts one review event. Manual events have no update path.
	Append(ctx context.Context, tx *gorm.DB, event *types.ReviewEvent) (*types.ReviewEvent, error)
	// ListRecentByEntry returns up to limit events, newest first.
	ListRecentByEntry(ctx context.Context, tx *gorm.DB, entryID uuid.UUID, limit int) ([]*types.ReviewEvent, error)
	// DeleteByQuestion removes the events an earlier grading pass left
	// for this question and reports how many it removed.
	DeleteByQuestion(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) (int64, error)
}

type reviewEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewEventRepo(db *gorm.DB, baseLog *logger.Logger) ReviewEventRepo {
	return &reviewEventRepo{db: db, log: baseLog.With("repo", "ReviewEventRepo")}
}

func (r *reviewEventRepo) Append(ctx context.Context, tx *gorm.DB, event *types.ReviewEvent) (*types.ReviewEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if event == nil {
		return nil, errors.New("nil review event")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now()
	if event.ReviewedAt.IsZero() {
		event.ReviewedAt = now
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if err := transaction.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *reviewEventRepo) DeleteByQuestion(ctx context.Context, tx *gorm.DB, questionID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("practice_exam_question_id = ?", questionID).
		Delete(&types.ReviewEvent{})
	return res.RowsAffected, res.Error
}

func (r *reviewEventRepo) ListRecentByEntry(ctx context.Context, tx *gorm.DB, entryID uuid.UUID, limit int) ([]*types.ReviewEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.ReviewEvent
	err := transaction.WithContext(ctx).
		Where("study_plan_entry_id = ?", entryID).
		Order("reviewed_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
