package services

import (
	"fmt"

	"github.com/vnkhanh/e-learning-backend/apierr"
	"github.com/vnkhanh/e-learning-backend/models"
)

// SelectActiveSet rotates to the next question set after every failed
// attempt: (failed mod totalSets) + 1.
func SelectActiveSet(totalSets int, history []models.QuizSubmission) int {
	if totalSets < 1 {
		totalSets = 1
	}
	failed := 0
	for _, s := range history {
		if !s.Passed {
			failed++
		}
	}
	return failed%totalSets + 1
}

// AuthorizeNewAttempt rejects once prior reaches a non-zero allowance.
func AuthorizeNewAttempt(attemptsAllowed int, prior int64) error {
	if attemptsAllowed > 0 && prior >= int64(attemptsAllowed) {
		return apierr.Policy(apierr.CodeMaxAttemptsReached,
			fmt.Sprintf("Maximum attempts reached (%d of %d used)", prior, attemptsAllowed))
	}
	return nil
}

// RemainingAttempts is nil for unlimited quizzes.
func RemainingAttempts(attemptsAllowed int, prior int64) *int {
	if attemptsAllowed <= 0 {
		return nil
	}
	left := attemptsAllowed - int(prior)
	if left < 0 {
		left = 0
	}
	return &left
}

func QuestionsInSet(questions []models.QuizQuestion, set int) []models.QuizQuestion {
	out := make([]models.QuizQuestion, 0, len(questions))
	for _, q := range questions {
		if q.EffectiveSet() == set {
			out = append(out, q)
		}
	}
	return out
}
