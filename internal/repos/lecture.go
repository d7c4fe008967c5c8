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

type LectureRepo interface {
	Create(ctx context.Context, tx *gorm.DB, lecture *types.Lecture) (*types.Lecture, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lecture, error)
	GetByIDForOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerUserID uuid.UUID) (*types.Lecture, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type lectureRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLectureRepo(db *gorm.DB, baseLog *logger.Logger) LectureRepo {
	return &lectureRepo{db: db, log: baseLog.With("repo", "LectureRepo")}
}

func (r *lectureRepo) Create(ctx context.Context, tx *gorm.DB, lecture *types.Lecture) (*types.Lecture, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if lecture == nil {
		return nil, errors.New("nil lecture")
	}
	if lecture.ID == uuid.Nil {
		lecture.ID = uuid.New()
	}
	now := time.Now()
	if lecture.CreatedAt.IsZero() {
		lecture.CreatedAt = now
	}
	lecture.UpdatedAt = now
	if lecture.Status == "" {
		lecture.Status = "uploaded"
	}
	if err := transaction.WithContext(ctx).Create(lecture).Error; err != nil {
		return nil, err
	}
	return lecture, nil
}

func (r *lectureRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lecture, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var lecture types.Lecture
	err := transaction.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&lecture).Error
	if err != nil {
		return nil, err
	}
	if lecture.ID == uuid.Nil {
		return nil, nil
	}
	return &lecture, nil
}

func (r *lectureRepo) GetByIDForOwner(ctx context.Context, tx *gorm.DB, id uuid.UUID, ownerUserID uuid.UUID) (*types.Lecture, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var lecture types.Lecture
	err := transaction.WithContext(ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Limit(1).Find(&lecture).Error
	if err != nil {
		return nil, err
	}
	if lecture.ID == uuid.Nil {
		return nil, nil
	}
	return &lecture, nil
}

func (r *lectureRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.Lecture{}).
		Where("id = ?", id).
		Updates(updates).Error
}
