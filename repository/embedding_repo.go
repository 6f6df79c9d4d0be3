package repository

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/models"
)

// Scope narrows a similarity search. LessonID wins over CourseID; with
// neither set the search returns nothing.
type Scope struct {
	LessonID *uuid.UUID
	CourseID *uuid.UUID
}

func (s Scope) Empty() bool { return s.LessonID == nil && s.CourseID == nil }

type Match struct {
	models.LessonEmbedding
	Distance float64 `json:"distance"`
}

type EmbeddingRepo interface {
	DeleteByLesson(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (int64, error)
	Create(ctx context.Context, tx *gorm.DB, e *models.LessonEmbedding) error
	CountByLesson(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (int64, error)
	Nearest(ctx context.Context, tx *gorm.DB, query []float32, scope Scope, k int) ([]Match, error)
}

type embeddingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmbeddingRepo(db *gorm.DB, baseLog *logger.Logger) EmbeddingRepo {
	return &embeddingRepo{db: db, log: baseLog.With("repo", "EmbeddingRepo")}
}

func (r *embeddingRepo) DeleteByLesson(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (int64, error) {
	res := pick(r.db, tx).WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Delete(&models.LessonEmbedding{})
	return res.RowsAffected, res.Error
}

func (r *embeddingRepo) Create(ctx context.Context, tx *gorm.DB, e *models.LessonEmbedding) error {
	return pick(r.db, tx).WithContext(ctx).Create(e).Error
}

func (r *embeddingRepo) CountByLesson(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (int64, error) {
	var n int64
	err := pick(r.db, tx).WithContext(ctx).
		Model(&models.LessonEmbedding{}).
		Where("lesson_id = ?", lessonID).
		Count(&n).Error
	return n, err
}

func (r *embeddingRepo) Nearest(ctx context.Context, tx *gorm.DB, query []float32, scope Scope, k int) ([]Match, error) {
	if scope.Empty() || k <= 0 || len(query) == 0 {
		return nil, nil
	}
	db := pick(r.db, tx).WithContext(ctx)

	q := db.Model(&models.LessonEmbedding{})
	if scope.LessonID != nil {
		q = q.Where("lesson_embeddings.lesson_id = ?", *scope.LessonID)
	} else {
		q = q.Joins("JOIN lessons ON lessons.id = lesson_embeddings.lesson_id").
			Joins("JOIN modules ON modules.id = lessons.module_id").
			Where("modules.course_id = ?", *scope.CourseID)
	}

	if db.Dialector.Name() == "postgres" {
		var out []Match
		err := q.Select("lesson_embeddings.*, lesson_embeddings.embedding <=> ? AS distance", pgvector.NewVector(query)).
			Order("distance ASC").
			Limit(k).
			Scan(&out).Error
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	var rows []models.LessonEmbedding
	if err := q.Select("lesson_embeddings.*").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rankByCosine(rows, query, k), nil
}

// rankByCosine mirrors the <=> operator for dialects without pgvector.
func rankByCosine(rows []models.LessonEmbedding, query []float32, k int) []Match {
	out := make([]Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, Match{
			LessonEmbedding: row,
			Distance:        1 - cosine(row.Embedding.Slice(), query),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
