package services

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/e-learning-backend/models"
)

func question(t *testing.T, typ models.QuestionType, points float64, correct ...any) models.QuizQuestion {
	t.Helper()
	raw, err := models.EncodeList(correct)
	require.NoError(t, err)
	return models.QuizQuestion{ID: uuid.New(), Type: typ, Points: points, CorrectAnswers: raw}
}

func TestGrade_Deterministic(t *testing.T) {
	qs := []models.QuizQuestion{
		question(t, models.QuestionMCQ, 1, "B"),
		question(t, models.QuestionMultiple, 2, "A", "C"),
		question(t, models.QuestionFillBlank, 1, "paris"),
	}
	answers := map[string]any{
		qs[0].ID.String(): "B",
		qs[1].ID.String(): []any{"C", "A"},
		qs[2].ID.String(): "Lyon",
	}

	first := Grade(qs, answers)
	for i := 0; i < 50; i++ {
		again := Grade(qs, answers)
		assert.Equal(t, first.Score, again.Score)
		assert.Equal(t, first.EarnedPoints, again.EarnedPoints)
	}
	assert.Equal(t, 75, first.Score)
	assert.Equal(t, 3.0, first.EarnedPoints)
	assert.Equal(t, 4.0, first.TotalPoints)
}

func TestGrade_ScoreStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	types := []models.QuestionType{
		models.QuestionMCQ, models.QuestionTrueFalse, models.QuestionMultiple,
		models.QuestionFillBlank, models.QuestionDescriptive, models.QuestionCode,
	}
	pool := []any{"A", "B", "C", true, false, "paris", nil, []any{"A", "B"}}

	for round := 0; round < 200; round++ {
		var qs []models.QuizQuestion
		answers := map[string]any{}
		for i := 0; i < 1+rng.Intn(8); i++ {
			q := question(t, types[rng.Intn(len(types))], float64(1+rng.Intn(5)), "A", "B")
			qs = append(qs, q)
			if rng.Intn(3) > 0 {
				answers[q.ID.String()] = pool[rng.Intn(len(pool))]
			}
		}
		res := Grade(qs, answers)
		assert.GreaterOrEqual(t, res.Score, 0)
		assert.LessOrEqual(t, res.Score, 100)
		assert.LessOrEqual(t, res.EarnedPoints, res.TotalPoints)
	}
}

func TestGrade_ManualTypesNeverScore(t *testing.T) {
	qs := []models.QuizQuestion{
		question(t, models.QuestionDescriptive, 5, "anything"),
		question(t, models.QuestionCode, 5, "print(1)"),
	}
	res := Grade(qs, map[string]any{
		qs[0].ID.String(): "anything",
		qs[1].ID.String(): "print(1)",
	})
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 0.0, res.EarnedPoints)
	assert.Equal(t, 10.0, res.TotalPoints)
}

func TestGrade_NoQuestions(t *testing.T) {
	res := Grade(nil, map[string]any{"x": "y"})
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 0.0, res.TotalPoints)
}

func TestGrade_MultiplePermutationsAndSubsets(t *testing.T) {
	q := question(t, models.QuestionMultiple, 1, "A", "B", "C")
	key := q.ID.String()
	qs := []models.QuizQuestion{q}

	for _, perm := range [][]any{
		{"A", "B", "C"}, {"A", "C", "B"}, {"B", "A", "C"},
		{"B", "C", "A"}, {"C", "A", "B"}, {"C", "B", "A"},
	} {
		assert.Equal(t, 100, Grade(qs, map[string]any{key: perm}).Score, "permutation %v", perm)
	}

	assert.Equal(t, 0, Grade(qs, map[string]any{key: []any{"A", "B"}}).Score, "subset")
	assert.Equal(t, 0, Grade(qs, map[string]any{key: []any{"A", "B", "C", "D"}}).Score, "superset")
	assert.Equal(t, 0, Grade(qs, map[string]any{key: []any{"A", "B", "D"}}).Score, "wrong member")
	assert.Equal(t, 0, Grade(qs, map[string]any{key: "A"}).Score, "not an array")
	assert.Equal(t, 100, Grade(qs, map[string]any{key: []string{"C", "B", "A"}}).Score, "typed slice")
}

func TestGrade_FillBlankIgnoresCaseAndSpace(t *testing.T) {
	q := question(t, models.QuestionFillBlank, 1, "paris", "Paris, France")
	qs := []models.QuizQuestion{q}
	key := q.ID.String()

	assert.Equal(t, 100, Grade(qs, map[string]any{key: " Paris "}).Score)
	assert.Equal(t, 100, Grade(qs, map[string]any{key: "PARIS, FRANCE"}).Score)
	assert.Equal(t, 0, Grade(qs, map[string]any{key: "Pari"}).Score)
}

func TestGrade_MCQIsExactAndCaseSensitive(t *testing.T) {
	q := question(t, models.QuestionMCQ, 1, "Paris")
	qs := []models.QuizQuestion{q}
	key := q.ID.String()

	assert.Equal(t, 100, Grade(qs, map[string]any{key: "Paris"}).Score)
	assert.Equal(t, 0, Grade(qs, map[string]any{key: "paris"}).Score)
	assert.Equal(t, 0, Grade(qs, map[string]any{key: " Paris"}).Score)
}

func TestGrade_TrueFalseAcceptsBoolOrString(t *testing.T) {
	q := question(t, models.QuestionTrueFalse, 1, "true")
	qs := []models.QuizQuestion{q}
	key := q.ID.String()

	assert.Equal(t, 100, Grade(qs, map[string]any{key: true}).Score)
	assert.Equal(t, 100, Grade(qs, map[string]any{key: "true"}).Score)
	assert.Equal(t, 0, Grade(qs, map[string]any{key: false}).Score)
}

func TestGrade_UnansweredCountsInTotal(t *testing.T) {
	qs := []models.QuizQuestion{
		question(t, models.QuestionMCQ, 1, "A"),
		question(t, models.QuestionMCQ, 1, "A"),
		question(t, models.QuestionMCQ, 1, "A"),
	}
	res := Grade(qs, map[string]any{
		qs[0].ID.String(): "A",
		qs[1].ID.String(): nil,
	})
	assert.Equal(t, 33, res.Score)
	assert.Equal(t, 3.0, res.TotalPoints)
	assert.True(t, res.Correct[qs[0].ID])
	assert.False(t, res.Correct[qs[1].ID])
	assert.False(t, res.Correct[qs[2].ID])

	res = Grade(qs, map[string]any{qs[0].ID.String(): "A", qs[1].ID.String(): "A"})
	assert.Equal(t, 67, res.Score)
}

func TestGrade_MalformedCorrectAnswersNeverMatch(t *testing.T) {
	q := models.QuizQuestion{ID: uuid.New(), Type: models.QuestionMCQ, Points: 1, CorrectAnswers: []byte(`{not json`)}
	res := Grade([]models.QuizQuestion{q}, map[string]any{q.ID.String(): "A"})
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 1.0, res.TotalPoints)
}
