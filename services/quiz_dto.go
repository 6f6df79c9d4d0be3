package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/e-learning-backend/models"
)

// Viewer is the authenticated caller as far as the quiz flows care.
type Viewer struct {
	UserID uuid.UUID
	Role   models.UserRole
}

func (v Viewer) CanAuthor() bool { return v.Role.CanAuthor() }

type QuestionInput struct {
	Type           models.QuestionType `json:"type"`
	Text           string              `json:"text"`
	Options        []any               `json:"options"`
	CorrectAnswers []any               `json:"correct_answers"`
	Points         *float64            `json:"points"`
	OrderIndex     *int                `json:"order_index"`
	SetNumber      *int                `json:"set_number"`
	Explanation    string              `json:"explanation"`
}

type CreateQuizInput struct {
	CourseID         *uuid.UUID      `json:"course_id"`
	LessonID         *uuid.UUID      `json:"lesson_id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	PassingScore     *int            `json:"passing_score"`
	AttemptsAllowed  *int            `json:"attempts_allowed"`
	AutoGrade        *bool           `json:"auto_grade"`
	TotalSets        *int            `json:"total_sets"`
	TimeLimitMinutes *int            `json:"time_limit_minutes"`
	Questions        []QuestionInput `json:"questions"`
}

// UpdateQuizInput is a patch. A non-nil Questions replaces every question
// of the quiz, including with an empty list.
type UpdateQuizInput struct {
	Title            *string          `json:"title"`
	Description      *string          `json:"description"`
	PassingScore     *int             `json:"passing_score"`
	AttemptsAllowed  *int             `json:"attempts_allowed"`
	AutoGrade        *bool            `json:"auto_grade"`
	TotalSets        *int             `json:"total_sets"`
	TimeLimitMinutes *int             `json:"time_limit_minutes"`
	Questions        *[]QuestionInput `json:"questions"`
}

type QuestionOrder struct {
	ID         uuid.UUID `json:"id"`
	OrderIndex int       `json:"order_index"`
}

type SubmitInput struct {
	Answers          map[string]any `json:"answers"`
	TimeTakenMinutes int            `json:"time_taken_minutes"`
}

type QuestionView struct {
	ID             uuid.UUID           `json:"id"`
	Type           models.QuestionType `json:"type"`
	Text           string              `json:"text"`
	Options        []any               `json:"options"`
	CorrectAnswers []any               `json:"correct_answers,omitempty"`
	Points         float64             `json:"points"`
	OrderIndex     int                 `json:"order_index"`
	SetNumber      int                 `json:"set_number"`
	Explanation    string              `json:"explanation,omitempty"`
}

type QuizView struct {
	ID               uuid.UUID      `json:"id"`
	CourseID         *uuid.UUID     `json:"course_id"`
	LessonID         *uuid.UUID     `json:"lesson_id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	PassingScore     int            `json:"passing_score"`
	AttemptsAllowed  int            `json:"attempts_allowed"`
	AutoGrade        bool           `json:"auto_grade"`
	TotalSets        int            `json:"total_sets"`
	TimeLimitMinutes int            `json:"time_limit_minutes"`
	CreatedBy        uuid.UUID      `json:"created_by"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Questions        []QuestionView `json:"questions"`
}

type QuizSummaryView struct {
	ID              uuid.UUID  `json:"id"`
	CourseID        *uuid.UUID `json:"course_id"`
	LessonID        *uuid.UUID `json:"lesson_id"`
	Title           string     `json:"title"`
	PassingScore    int        `json:"passing_score"`
	AttemptsAllowed int        `json:"attempts_allowed"`
	AutoGrade       bool       `json:"auto_grade"`
	TotalSets       int        `json:"total_sets"`
	QuestionCount   int64      `json:"question_count"`
	CreatedAt       time.Time  `json:"created_at"`
}

// AttemptView is what a student needs to start an attempt.
type AttemptView struct {
	Quiz              QuizView `json:"quiz"`
	SetNumber         int      `json:"set_number"`
	AttemptsUsed      int64    `json:"attempts_used"`
	AttemptsRemaining *int     `json:"attempts_remaining"`
	CanAttempt        bool     `json:"can_attempt"`
}

type SubmissionView struct {
	ID               uuid.UUID      `json:"id"`
	QuizID           uuid.UUID      `json:"quiz_id"`
	StudentID        uuid.UUID      `json:"student_id"`
	Answers          map[string]any `json:"answers"`
	Score            *int           `json:"score"`
	Passed           bool           `json:"passed"`
	SetNumber        int            `json:"set_number"`
	AttemptNumber    int            `json:"attempt_number"`
	TimeTakenMinutes int            `json:"time_taken_minutes"`
	SubmittedAt      time.Time      `json:"submitted_at"`
	EarnedPoints     *float64       `json:"earned_points,omitempty"`
	TotalPoints      *float64       `json:"total_points,omitempty"`
}

func toQuestionView(q models.QuizQuestion, withAnswers bool) QuestionView {
	v := QuestionView{
		ID:         q.ID,
		Type:       q.Type,
		Text:       q.Text,
		Options:    q.OptionList(),
		Points:     q.Points,
		OrderIndex: q.OrderIndex,
		SetNumber:  q.EffectiveSet(),
	}
	if withAnswers {
		v.CorrectAnswers = q.CorrectAnswerList()
		v.Explanation = q.Explanation
	}
	return v
}

func toQuizView(q models.Quiz, questions []models.QuizQuestion, withAnswers bool) QuizView {
	v := QuizView{
		ID:               q.ID,
		CourseID:         q.CourseID,
		LessonID:         q.LessonID,
		Title:            q.Title,
		Description:      q.Description,
		PassingScore:     q.PassingScore,
		AttemptsAllowed:  q.AttemptsAllowed,
		AutoGrade:        q.AutoGrade,
		TotalSets:        q.TotalSets,
		TimeLimitMinutes: q.TimeLimitMinutes,
		CreatedBy:        q.CreatedBy,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
		Questions:        make([]QuestionView, 0, len(questions)),
	}
	for _, qq := range questions {
		v.Questions = append(v.Questions, toQuestionView(qq, withAnswers))
	}
	return v
}

func toSubmissionView(s models.QuizSubmission) SubmissionView {
	return SubmissionView{
		ID:               s.ID,
		QuizID:           s.QuizID,
		StudentID:        s.StudentID,
		Answers:          decodeAnswers(s.Answers),
		Score:            s.Score,
		Passed:           s.Passed,
		SetNumber:        s.SetNumber,
		AttemptNumber:    s.AttemptNumber,
		TimeTakenMinutes: s.TimeTakenMinutes,
		SubmittedAt:      s.SubmittedAt,
	}
}
