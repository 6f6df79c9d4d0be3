package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/models"
)

type LessonRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Lesson, error)
	ListIDsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error)
	CourseExists(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (bool, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := pick(r.db, tx).WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepo) ListIDsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := pick(r.db, tx).WithContext(ctx).
		Model(&models.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", courseID).
		Order("modules.order_index ASC, lessons.order_index ASC").
		Pluck("lessons.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *lessonRepo) CourseExists(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (bool, error) {
	var n int64
	err := pick(r.db, tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", courseID).
		Count(&n).Error
	return n > 0, err
}
