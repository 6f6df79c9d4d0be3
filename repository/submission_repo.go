package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/models"
)

// SubmissionRepo is append-only: there is no update or delete.
type SubmissionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, submission *models.QuizSubmission) error
	ListByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID, studentID uuid.UUID) ([]models.QuizSubmission, error)
	CountByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID, studentID uuid.UUID) (int64, error)
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	return &submissionRepo{db: db, log: baseLog.With("repo", "SubmissionRepo")}
}

func (r *submissionRepo) Create(ctx context.Context, tx *gorm.DB, submission *models.QuizSubmission) error {
	return pick(r.db, tx).WithContext(ctx).Create(submission).Error
}

func (r *submissionRepo) ListByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID, studentID uuid.UUID) ([]models.QuizSubmission, error) {
	var out []models.QuizSubmission
	err := pick(r.db, tx).WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("attempt_number ASC, submitted_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *submissionRepo) CountByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID, studentID uuid.UUID) (int64, error) {
	var n int64
	err := pick(r.db, tx).WithContext(ctx).
		Model(&models.QuizSubmission{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&n).Error
	return n, err
}
