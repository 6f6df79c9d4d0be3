package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vnkhanh/e-learning-backend/models"
)

// GradeResult is the outcome of auto-grading one attempt. Pass/fail is the
// caller's call: compare Score against the quiz's passing score.
type GradeResult struct {
	Score        int                `json:"score"`
	EarnedPoints float64            `json:"earned_points"`
	TotalPoints  float64            `json:"total_points"`
	Correct      map[uuid.UUID]bool `json:"-"`
}

// Grade scores answers against questions. answers is keyed by question ID
// string; values are whatever the client sent (string, bool, number, array
// or null). Every question counts toward the total, answered or not.
func Grade(questions []models.QuizQuestion, answers map[string]any) GradeResult {
	res := GradeResult{Correct: make(map[uuid.UUID]bool, len(questions))}

	for _, q := range questions {
		res.TotalPoints += q.Points

		submitted, ok := answers[q.ID.String()]
		if !ok || submitted == nil {
			res.Correct[q.ID] = false
			continue
		}
		correct := isCorrect(q.Type, submitted, q.CorrectAnswerList())
		res.Correct[q.ID] = correct
		if correct {
			res.EarnedPoints += q.Points
		}
	}

	if res.TotalPoints > 0 {
		res.Score = clampScore(int(math.Round(res.EarnedPoints / res.TotalPoints * 100)))
	}
	return res
}

func isCorrect(t models.QuestionType, submitted any, correct []any) bool {
	switch t {
	case models.QuestionMCQ, models.QuestionTrueFalse:
		if len(correct) == 0 {
			return false
		}
		got, ok := scalarString(submitted)
		want, ok2 := scalarString(correct[0])
		return ok && ok2 && got == want

	case models.QuestionMultiple:
		got, ok := stringList(submitted)
		if !ok || len(got) != len(correct) {
			return false
		}
		accepted := make(map[string]struct{}, len(correct))
		for _, c := range correct {
			if s, ok := scalarString(c); ok {
				accepted[s] = struct{}{}
			}
		}
		// Duplicates in the submission are not detected.
		for _, s := range got {
			if _, ok := accepted[s]; !ok {
				return false
			}
		}
		return true

	case models.QuestionFillBlank:
		got, ok := scalarString(submitted)
		if !ok {
			return false
		}
		got = strings.TrimSpace(got)
		for _, c := range correct {
			if want, ok := scalarString(c); ok && strings.EqualFold(got, strings.TrimSpace(want)) {
				return true
			}
		}
		return false
	}

	// DESCRIPTIVE and CODE are graded by a person.
	return false
}

// scalarString gives JSON scalars one canonical text form so "true" and
// true, or "3" and 3, compare equal.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case json.Number:
		return x.String(), true
	}
	return "", false
}

func stringList(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return x, true
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := scalarString(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
