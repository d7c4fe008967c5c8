package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

type LectureChunkRepo interface {
	// ReplaceForLecture swaps the lecture's chunk rows for a fresh set in
	// one transaction. Re-running a segmentation is last-write-wins.
	ReplaceForLecture(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID, chunks []*types.LectureChunk) error
	ListByLecture(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID) ([]*types.LectureChunk, error)
	UpdateEmbedding(ctx context.Context, tx *gorm.DB, id uuid.UUID, embedding datatypes.JSON, model string) error
}

type lectureChunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLectureChunkRepo(db *gorm.DB, baseLog *logger.Logger) LectureChunkRepo {
	return &lectureChunkRepo{db: db, log: baseLog.With("repo", "LectureChunkRepo")}
}

func (r *lectureChunkRepo) ReplaceForLecture(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID, chunks []*types.LectureChunk) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("lecture_id = ?", lectureID).Delete(&types.LectureChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		now := time.Now()
		for i, c := range chunks {
			if c.ID == uuid.Nil {
				c.ID = uuid.New()
			}
			c.LectureID = lectureID
			c.Index = i
			if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}
			c.UpdatedAt = now
		}
		return txx.Create(chunks).Error
	})
}

func (r *lectureChunkRepo) ListByLecture(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID) ([]*types.LectureChunk, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.LectureChunk
	err := transaction.WithContext(ctx).
		Where("lecture_id = ?", lectureID).
		Order(`"index" ASC`).
		Find(&out).Error
	return out, err
}

func (r *lectureChunkRepo) UpdateEmbedding(ctx context.Context, tx *gorm.DB, id uuid.UUID, embedding datatypes.JSON, model string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.LectureChunk{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"embedding":  embedding,
			"model":      model,
			"updated_at": time.Now(),
		}).Error
}
