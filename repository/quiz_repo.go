package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/models"
)

type QuizFilter struct {
	CourseID *uuid.UUID
	LessonID *uuid.UUID
}

type QuizSummary struct {
	models.Quiz
	QuestionCount int64 `json:"question_count"`
}

type QuizRepo interface {
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Quiz, error)
	GetWithQuestions(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Quiz, error)
	List(ctx context.Context, tx *gorm.DB, filter QuizFilter) ([]QuizSummary, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	LockForSubmission(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Quiz, error)
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	return &quizRepo{db: db, log: baseLog.With("repo", "QuizRepo")}
}

func (r *quizRepo) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	return pick(r.db, tx).WithContext(ctx).Omit("Questions").Create(quiz).Error
}

func (r *quizRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := pick(r.db, tx).WithContext(ctx).First(&quiz, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepo) GetWithQuestions(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	err := pick(r.db, tx).WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC, created_at ASC")
		}).
		First(&quiz, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepo) List(ctx context.Context, tx *gorm.DB, filter QuizFilter) ([]QuizSummary, error) {
	db := pick(r.db, tx).WithContext(ctx)

	query := db.Model(&models.Quiz{})
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.LessonID != nil {
		query = query.Where("lesson_id = ?", *filter.LessonID)
	}

	var quizzes []models.Quiz
	if err := query.Order("created_at DESC").Find(&quizzes).Error; err != nil {
		return nil, err
	}
	out := make([]QuizSummary, 0, len(quizzes))
	if len(quizzes) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ID)
	}
	var counts []struct {
		QuizID uuid.UUID
		Total  int64
	}
	if err := db.Model(&models.QuizQuestion{}).
		Select("quiz_id, COUNT(*) AS total").
		Where("quiz_id IN ?", ids).
		Group("quiz_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	byQuiz := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		byQuiz[c.QuizID] = c.Total
	}

	for _, q := range quizzes {
		out = append(out, QuizSummary{Quiz: q, QuestionCount: byQuiz[q.ID]})
	}
	return out, nil
}

func (r *quizRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := pick(r.db, tx).WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *quizRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	res := pick(r.db, tx).WithContext(ctx).Delete(&models.Quiz{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LockForSubmission loads the quiz holding a row lock for the rest of tx so
// concurrent submissions by the same student are counted one after another.
// SQLite has no row locks; its writers are already serialized.
func (r *quizRepo) LockForSubmission(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Quiz, error) {
	db := pick(r.db, tx).WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var quiz models.Quiz
	if err := db.First(&quiz, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}
