package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

type StudyPlanEntryRepo interface {
	// ReplaceForLecture swaps a lecture's whole plan in one transaction.
	// Re-running a plan job against the same lecture is last-write-wins.
	ReplaceForLecture(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID, entries []*types.StudyPlanEntry) error
	ListByLecture(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID) ([]*types.StudyPlanEntry, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID) ([]*types.StudyPlanEntry, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudyPlanEntry, error)
	UpdateMasteryFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, masteryScore float64, nextReviewAt time.Time, reviewCount int, easeFactor float64) error
}

type studyPlanEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyPlanEntryRepo(db *gorm.DB, baseLog *logger.Logger) StudyPlanEntryRepo {
	return &studyPlanEntryRepo{db: db, log: baseLog.With("repo", "StudyPlanEntryRepo")}
}

func (r *studyPlanEntryRepo) ReplaceForLecture(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID, entries []*types.StudyPlanEntry) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("lecture_id = ?", lectureID).Delete(&types.StudyPlanEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		now := time.Now()
		for _, e := range entries {
			if e.ID == uuid.Nil {
				e.ID = uuid.New()
			}
			e.LectureID = lectureID
			if e.CreatedAt.IsZero() {
				e.CreatedAt = now
			}
			e.UpdatedAt = now
		}
		return txx.Create(&entries).Error
	})
}

func (r *studyPlanEntryRepo) ListByLecture(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID) ([]*types.StudyPlanEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StudyPlanEntry
	err := transaction.WithContext(ctx).
		Where("lecture_id = ?", lectureID).
		Order("order_index ASC").
		Find(&out).Error
	return out, err
}

func (r *studyPlanEntryRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID) ([]*types.StudyPlanEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.StudyPlanEntry
	err := transaction.WithContext(ctx).
		Joins("JOIN lecture ON lecture.id = study_plan_entry.lecture_id").
		Where("lecture.owner_user_id = ? AND lecture.deleted_at IS NULL", ownerUserID).
		Order("study_plan_entry.order_index ASC").
		Find(&out).Error
	return out, err
}

func (r *studyPlanEntryRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudyPlanEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var entry types.StudyPlanEntry
	err := transaction.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == uuid.Nil {
		return nil, nil
	}
	return &entry, nil
}

func (r *studyPlanEntryRepo) UpdateMasteryFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, masteryScore float64, nextReviewAt time.Time, reviewCount int, easeFactor float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.StudyPlanEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"mastery_score":  masteryScore,
			"next_review_at": nextReviewAt,
			"review_count":   reviewCount,
			"ease_factor":    easeFactor,
			"updated_at":     time.Now(),
		}).Error
}
