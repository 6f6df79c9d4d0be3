package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/testutil"
)

func unit(i int) []float32 {
	v := make([]float32, models.EmbeddingDimensions)
	v[i] = 1
	return v
}

func TestEmbeddingRepo_NearestByLesson(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewEmbeddingRepo(db, logger.Nop())
	ctx := context.Background()
	_, _, lesson := testutil.SeedLesson(t, db, "x")
	_, _, elsewhere := testutil.SeedLesson(t, db, "y")

	for i, text := range []string{"zero", "one", "two", "three"} {
		require.NoError(t, repo.Create(ctx, nil, &models.LessonEmbedding{
			LessonID: lesson.ID, ChunkIndex: i, ContentChunk: text, Embedding: pgvector.NewVector(unit(i)),
		}))
	}
	require.NoError(t, repo.Create(ctx, nil, &models.LessonEmbedding{
		LessonID: elsewhere.ID, ContentChunk: "other lesson", Embedding: pgvector.NewVector(unit(2)),
	}))

	query := unit(2)
	query[3] = 0.5
	got, err := repo.Nearest(ctx, nil, query, Scope{LessonID: &lesson.ID}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].ContentChunk)
	assert.Equal(t, "three", got[1].ContentChunk)
	assert.Less(t, got[0].Distance, got[1].Distance)
	assert.Len(t, got[0].Embedding.Slice(), models.EmbeddingDimensions)
}

func TestEmbeddingRepo_NearestByCourse(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewEmbeddingRepo(db, logger.Nop())
	ctx := context.Background()

	course, _, first := testutil.SeedLesson(t, db, "a")
	second := testutil.SeedLessonIn(t, db, course.ID, "b")
	_, _, foreign := testutil.SeedLesson(t, db, "c")

	require.NoError(t, repo.Create(ctx, nil, &models.LessonEmbedding{LessonID: first.ID, ContentChunk: "first", Embedding: pgvector.NewVector(unit(0))}))
	require.NoError(t, repo.Create(ctx, nil, &models.LessonEmbedding{LessonID: second.ID, ContentChunk: "second", Embedding: pgvector.NewVector(unit(1))}))
	require.NoError(t, repo.Create(ctx, nil, &models.LessonEmbedding{LessonID: foreign.ID, ContentChunk: "foreign", Embedding: pgvector.NewVector(unit(1))}))

	got, err := repo.Nearest(ctx, nil, unit(1), Scope{CourseID: &course.ID}, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].ContentChunk)
	assert.Equal(t, "first", got[1].ContentChunk)
}

func TestEmbeddingRepo_NearestWithoutScope(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewEmbeddingRepo(db, logger.Nop())

	got, err := repo.Nearest(context.Background(), nil, unit(0), Scope{}, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbeddingRepo_DeleteByLesson(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewEmbeddingRepo(db, logger.Nop())
	ctx := context.Background()
	_, _, lesson := testutil.SeedLesson(t, db, "x")

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, nil, &models.LessonEmbedding{LessonID: lesson.ID, ChunkIndex: i, ContentChunk: "c", Embedding: pgvector.NewVector(unit(i))}))
	}
	n, err := repo.DeleteByLesson(ctx, nil, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.DeleteByLesson(ctx, nil, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := repo.CountByLesson(ctx, nil, lesson.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, cosine([]float32{1}, []float32{1, 1}))
}
