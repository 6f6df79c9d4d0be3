package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/models"
)

type QuestionRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []models.QuizQuestion) error
	ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) ([]models.QuizQuestion, error)
	GetByID(ctx context.Context, tx *gorm.DB, quizID, id uuid.UUID) (*models.QuizQuestion, error)
	DeleteByQuiz(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) error
	Delete(ctx context.Context, tx *gorm.DB, quizID, id uuid.UUID) error
	UpdateOrder(ctx context.Context, tx *gorm.DB, quizID, id uuid.UUID, orderIndex int) error
	NextOrderIndex(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (int, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, questions []models.QuizQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	return pick(r.db, tx).WithContext(ctx).Create(&questions).Error
}

func (r *questionRepo) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) ([]models.QuizQuestion, error) {
	var out []models.QuizQuestion
	err := pick(r.db, tx).WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("order_index ASC, created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questionRepo) GetByID(ctx context.Context, tx *gorm.DB, quizID, id uuid.UUID) (*models.QuizQuestion, error) {
	var q models.QuizQuestion
	if err := pick(r.db, tx).WithContext(ctx).
		Where("quiz_id = ? AND id = ?", quizID, id).
		First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionRepo) DeleteByQuiz(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) error {
	return pick(r.db, tx).WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Delete(&models.QuizQuestion{}).Error
}

func (r *questionRepo) Delete(ctx context.Context, tx *gorm.DB, quizID, id uuid.UUID) error {
	res := pick(r.db, tx).WithContext(ctx).
		Where("quiz_id = ? AND id = ?", quizID, id).
		Delete(&models.QuizQuestion{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateOrder moves one question. A question that does not belong to the quiz
// yields gorm.ErrRecordNotFound so the surrounding batch can roll back.
func (r *questionRepo) UpdateOrder(ctx context.Context, tx *gorm.DB, quizID, id uuid.UUID, orderIndex int) error {
	res := pick(r.db, tx).WithContext(ctx).
		Model(&models.QuizQuestion{}).
		Where("quiz_id = ? AND id = ?", quizID, id).
		Update("order_index", orderIndex)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *questionRepo) NextOrderIndex(ctx context.Context, tx *gorm.DB, quizID uuid.UUID) (int, error) {
	var next int
	err := pick(r.db, tx).WithContext(ctx).
		Model(&models.QuizQuestion{}).
		Where("quiz_id = ?", quizID).
		Select("COALESCE(MAX(order_index), -1) + 1").
		Scan(&next).Error
	return next, err
}
