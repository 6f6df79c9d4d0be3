package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionMCQ         QuestionType = "MCQ"
	QuestionTrueFalse   QuestionType = "TRUE_FALSE"
	QuestionMultiple    QuestionType = "MULTIPLE"
	QuestionFillBlank   QuestionType = "FILL_BLANK"
	QuestionDescriptive QuestionType = "DESCRIPTIVE"
	QuestionCode        QuestionType = "CODE"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMCQ, QuestionTrueFalse, QuestionMultiple, QuestionFillBlank, QuestionDescriptive, QuestionCode:
		return true
	}
	return false
}

// NeedsOptions reports whether the type is answered by picking from options.
func (t QuestionType) NeedsOptions() bool {
	return t == QuestionMCQ || t == QuestionTrueFalse || t == QuestionMultiple
}

type Quiz struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID         *uuid.UUID     `gorm:"type:uuid;index" json:"course_id"`
	LessonID         *uuid.UUID     `gorm:"type:uuid;index" json:"lesson_id"`
	Title            string         `gorm:"size:255;not null" json:"title"`
	Description      string         `gorm:"type:text" json:"description"`
	PassingScore     int            `gorm:"not null" json:"passing_score"`              // 0-100
	AttemptsAllowed  int            `gorm:"not null;default:0" json:"attempts_allowed"` // 0 = unlimited
	AutoGrade        bool           `gorm:"not null" json:"auto_grade"`
	TotalSets        int            `gorm:"not null" json:"total_sets"`
	TimeLimitMinutes int            `gorm:"default:0" json:"time_limit_minutes"`
	CreatedBy        uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	Questions        []QuizQuestion `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE;" json:"questions,omitempty"`
}

type QuizQuestion struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Type           QuestionType   `gorm:"type:varchar(20);not null" json:"type"`
	Text           string         `gorm:"type:text;not null" json:"text"`
	Options        datatypes.JSON `json:"options"`
	CorrectAnswers datatypes.JSON `json:"correct_answers"`
	Points         float64        `gorm:"not null" json:"points"`
	OrderIndex     int            `gorm:"not null;default:0" json:"order_index"`
	SetNumber      *int           `json:"set_number"`
	Explanation    string         `gorm:"type:text" json:"explanation"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// EffectiveSet is the rotation set this question belongs to.
func (q QuizQuestion) EffectiveSet() int {
	if q.SetNumber == nil || *q.SetNumber < 1 {
		return 1
	}
	return *q.SetNumber
}

func (q QuizQuestion) OptionList() []any {
	return DecodeList(q.Options)
}

func (q QuizQuestion) CorrectAnswerList() []any {
	return DecodeList(q.CorrectAnswers)
}

// QuizSubmission is one attempt. Rows are only ever inserted; attempt
// counting and set rotation read the history as-is.
type QuizSubmission struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID           uuid.UUID      `gorm:"type:uuid;not null;index:idx_submission_quiz_student" json:"quiz_id"`
	StudentID        uuid.UUID      `gorm:"type:uuid;not null;index:idx_submission_quiz_student" json:"student_id"`
	Answers          datatypes.JSON `json:"answers"`
	Score            *int           `json:"score"`
	Passed           bool           `gorm:"not null;default:false" json:"passed"`
	SetNumber        int            `gorm:"not null;default:1" json:"set_number"`
	AttemptNumber    int            `gorm:"not null;default:1" json:"attempt_number"`
	TimeTakenMinutes int            `gorm:"default:0" json:"time_taken_minutes"`
	SubmittedAt      time.Time      `gorm:"autoCreateTime" json:"submitted_at"`
}

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

func (q *QuizQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

func (s *QuizSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// DecodeList reads a stored JSON array. Anything that is not a well-formed
// array comes back as an empty list.
func DecodeList(raw datatypes.JSON) []any {
	out := []any{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return []any{}
	}
	return out
}

func EncodeList(v []any) (datatypes.JSON, error) {
	if v == nil {
		v = []any{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
