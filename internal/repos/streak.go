package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

type StreakRepo interface {
	GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StreakInfo, error)
	// Save persists streak counters and enforces longest >= current.
	Save(ctx context.Context, tx *gorm.DB, streak *types.StreakInfo) error
}

type streakRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStreakRepo(db *gorm.DB, baseLog *logger.Logger) StreakRepo {
	return &streakRepo{db: db, log: baseLog.With("repo", "StreakRepo")}
}

func (r *streakRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StreakInfo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var streak types.StreakInfo
	err := transaction.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&streak).Error
	if err != nil {
		return nil, err
	}
	if streak.ID != uuid.Nil {
		return &streak, nil
	}
	now := time.Now()
	streak = types.StreakInfo{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := transaction.WithContext(ctx).Create(&streak).Error; err != nil {
		return nil, err
	}
	return &streak, nil
}

func (r *streakRepo) Save(ctx context.Context, tx *gorm.DB, streak *types.StreakInfo) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if streak.Longest < streak.Current {
		streak.Longest = streak.Current
	}
	streak.UpdatedAt = time.Now()
	return transaction.WithContext(ctx).
		Model(&types.StreakInfo{}).
		Where("id = ?", streak.ID).
		Updates(map[string]interface{}{
			"current":          streak.Current,
			"longest":          streak.Longest,
			"last_review_date": streak.LastReviewDate,
			"updated_at":       streak.UpdatedAt,
		}).Error
}
