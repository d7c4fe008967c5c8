package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/devBarbar/smart-study-notes-sub002/internal/logger"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

type PracticeExamRepo interface {
	CreateWithQuestions(ctx context.Context, tx *gorm.DB, exam *types.PracticeExam, questions []*types.PracticeExamQuestion) (*types.PracticeExam, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PracticeExam, error)
	ListQuestions(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.PracticeExamQuestion, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
	// UpsertResponse writes a graded answer keyed by question id; a
	// re-grade overwrites the previous row.
	UpsertResponse(ctx context.Context, tx *gorm.DB, response *types.PracticeExamResponse) error
	ListResponses(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.PracticeExamResponse, error)
}

type practiceExamRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPracticeExamRepo(db *gorm.DB, baseLog *logger.Logger) PracticeExamRepo {
	return &practiceExamRepo{db: db, log: baseLog.With("repo", "PracticeExamRepo")}
}

func (r *practiceExamRepo) CreateWithQuestions(ctx context.Context, tx *gorm.DB, exam *types.PracticeExam, questions []*types.PracticeExamQuestion) (*types.PracticeExam, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if exam == nil {
		return nil, errors.New("nil exam")
	}
	now := time.Now()
	if exam.ID == uuid.Nil {
		exam.ID = uuid.New()
	}
	if exam.Status == "" {
		exam.Status = types.ExamStatusPending
	}
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = now
	}
	exam.UpdatedAt = now

	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Create(exam).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		for i, q := range questions {
			if q.ID == uuid.Nil {
				q.ID = uuid.New()
			}
			q.PracticeExamID = exam.ID
			q.Index = i
			if q.CreatedAt.IsZero() {
				q.CreatedAt = now
			}
			q.UpdatedAt = now
		}
		return txx.Create(&questions).Error
	})
	if err != nil {
		return nil, err
	}
	return exam, nil
}

func (r *practiceExamRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PracticeExam, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var exam types.PracticeExam
	err := transaction.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&exam).Error
	if err != nil {
		return nil, err
	}
	if exam.ID == uuid.Nil {
		return nil, nil
	}
	return &exam, nil
}

func (r *practiceExamRepo) ListQuestions(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.PracticeExamQuestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PracticeExamQuestion
	err := transaction.WithContext(ctx).
		Where("practice_exam_id = ?", examID).
		Order(`"index" ASC`).
		Find(&out).Error
	return out, err
}

func (r *practiceExamRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if status == types.ExamStatusCompleted {
		updates["completed_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.PracticeExam{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *practiceExamRepo) UpsertResponse(ctx context.Context, tx *gorm.DB, response *types.PracticeExamResponse) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if response == nil {
		return errors.New("nil response")
	}
	now := time.Now()
	if response.ID == uuid.Nil {
		response.ID = uuid.New()
	}
	if response.CreatedAt.IsZero() {
		response.CreatedAt = now
	}
	response.UpdatedAt = now
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "practice_exam_question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"answer_text", "score", "response_quality", "feedback", "graded_at", "updated_at",
			}),
		}).
		Create(response).Error
}

func (r *practiceExamRepo) ListResponses(ctx context.Context, tx *gorm.DB, examID uuid.UUID) ([]*types.PracticeExamResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PracticeExamResponse
	err := transaction.WithContext(ctx).
		Joins("JOIN practice_exam_question ON practice_exam_question.id = practice_exam_response.practice_exam_question_id").
		Where("practice_exam_question.practice_exam_id = ?", examID).
		Order(`practice_exam_question."index" ASC`).
		Find(&out).Error
	return out, err
}
