package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-learning-backend/apierr"
	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/repository"
)

const (
	defaultPassingScore = 50
	defaultPoints       = 1.0
)

type QuizService interface {
	Create(ctx context.Context, author Viewer, in CreateQuizInput) (*QuizView, error)
	Get(ctx context.Context, viewer Viewer, quizID uuid.UUID) (*QuizView, error)
	List(ctx context.Context, filter repository.QuizFilter) ([]QuizSummaryView, error)
	Update(ctx context.Context, quizID uuid.UUID, in UpdateQuizInput) (*QuizView, error)
	Delete(ctx context.Context, quizID uuid.UUID) error

	AddQuestion(ctx context.Context, quizID uuid.UUID, in QuestionInput) (*QuestionView, error)
	DeleteQuestion(ctx context.Context, quizID, questionID uuid.UUID) error
	ReorderQuestions(ctx context.Context, quizID uuid.UUID, orders []QuestionOrder) error

	GetAttempt(ctx context.Context, student Viewer, quizID uuid.UUID) (*AttemptView, error)
	Submit(ctx context.Context, student Viewer, quizID uuid.UUID, in SubmitInput) (*SubmissionView, error)
	ListSubmissions(ctx context.Context, viewer Viewer, quizID uuid.UUID, studentID *uuid.UUID) ([]SubmissionView, error)
}

type quizService struct {
	db          *gorm.DB
	log         *logger.Logger
	quizzes     repository.QuizRepo
	questions   repository.QuestionRepo
	submissions repository.SubmissionRepo
}

func NewQuizService(
	db *gorm.DB,
	baseLog *logger.Logger,
	quizzes repository.QuizRepo,
	questions repository.QuestionRepo,
	submissions repository.SubmissionRepo,
) QuizService {
	return &quizService{
		db:          db,
		log:         baseLog.With("service", "QuizService"),
		quizzes:     quizzes,
		questions:   questions,
		submissions: submissions,
	}
}

func (s *quizService) Create(ctx context.Context, author Viewer, in CreateQuizInput) (*QuizView, error) {
	quiz := models.Quiz{
		CourseID:         in.CourseID,
		LessonID:         in.LessonID,
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		PassingScore:     intOr(in.PassingScore, defaultPassingScore),
		AttemptsAllowed:  intOr(in.AttemptsAllowed, 0),
		AutoGrade:        boolOr(in.AutoGrade, true),
		TotalSets:        intOr(in.TotalSets, 1),
		TimeLimitMinutes: intOr(in.TimeLimitMinutes, 0),
		CreatedBy:        author.UserID,
	}
	if err := validateQuiz(quiz); err != nil {
		return nil, err
	}

	var out *QuizView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.quizzes.Create(ctx, tx, &quiz); err != nil {
			return fmt.Errorf("create quiz: %w", err)
		}
		qs, err := buildQuestions(quiz.ID, in.Questions)
		if err != nil {
			return err
		}
		if err := s.questions.CreateBatch(ctx, tx, qs); err != nil {
			return fmt.Errorf("create questions: %w", err)
		}
		full, err := s.quizzes.GetWithQuestions(ctx, tx, quiz.ID)
		if err != nil {
			return fmt.Errorf("reload quiz: %w", err)
		}
		v := toQuizView(*full, full.Questions, true)
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quiz created", "quiz_id", quiz.ID, "questions", len(out.Questions), "created_by", author.UserID)
	return out, nil
}

// Get shows authors the full quiz with answers. Everyone else sees only the
// questions of their active set, without answers.
func (s *quizService) Get(ctx context.Context, viewer Viewer, quizID uuid.UUID) (*QuizView, error) {
	quiz, err := s.quizzes.GetWithQuestions(ctx, nil, quizID)
	if err != nil {
		return nil, quizNotFound(err)
	}
	if viewer.CanAuthor() {
		v := toQuizView(*quiz, quiz.Questions, true)
		return &v, nil
	}

	history, err := s.submissions.ListByQuizAndStudent(ctx, nil, quizID, viewer.UserID)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	set := SelectActiveSet(quiz.TotalSets, history)
	v := toQuizView(*quiz, QuestionsInSet(quiz.Questions, set), false)
	return &v, nil
}

func (s *quizService) List(ctx context.Context, filter repository.QuizFilter) ([]QuizSummaryView, error) {
	rows, err := s.quizzes.List(ctx, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	out := make([]QuizSummaryView, 0, len(rows))
	for _, r := range rows {
		out = append(out, QuizSummaryView{
			ID:              r.ID,
			CourseID:        r.CourseID,
			LessonID:        r.LessonID,
			Title:           r.Title,
			PassingScore:    r.PassingScore,
			AttemptsAllowed: r.AttemptsAllowed,
			AutoGrade:       r.AutoGrade,
			TotalSets:       r.TotalSets,
			QuestionCount:   r.QuestionCount,
			CreatedAt:       r.CreatedAt,
		})
	}
	return out, nil
}

// Update patches scalar fields and, when in.Questions is set, swaps the whole
// question list. Both happen in one transaction so readers see either the
// old list or the new one.
func (s *quizService) Update(ctx context.Context, quizID uuid.UUID, in UpdateQuizInput) (*QuizView, error) {
	var out *QuizView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quiz, err := s.quizzes.GetByID(ctx, tx, quizID)
		if err != nil {
			return quizNotFound(err)
		}

		fields := map[string]interface{}{}
		if in.Title != nil {
			quiz.Title = strings.TrimSpace(*in.Title)
			fields["title"] = quiz.Title
		}
		if in.Description != nil {
			quiz.Description = *in.Description
			fields["description"] = quiz.Description
		}
		if in.PassingScore != nil {
			quiz.PassingScore = *in.PassingScore
			fields["passing_score"] = quiz.PassingScore
		}
		if in.AttemptsAllowed != nil {
			quiz.AttemptsAllowed = *in.AttemptsAllowed
			fields["attempts_allowed"] = quiz.AttemptsAllowed
		}
		if in.AutoGrade != nil {
			quiz.AutoGrade = *in.AutoGrade
			fields["auto_grade"] = quiz.AutoGrade
		}
		if in.TotalSets != nil {
			quiz.TotalSets = *in.TotalSets
			fields["total_sets"] = quiz.TotalSets
		}
		if in.TimeLimitMinutes != nil {
			quiz.TimeLimitMinutes = *in.TimeLimitMinutes
			fields["time_limit_minutes"] = quiz.TimeLimitMinutes
		}
		if err := validateQuiz(*quiz); err != nil {
			return err
		}

		if in.Questions != nil {
			fields["updated_at"] = time.Now()
		}
		if err := s.quizzes.UpdateFields(ctx, tx, quizID, fields); err != nil {
			return quizNotFound(err)
		}

		if in.Questions != nil {
			qs, err := buildQuestions(quizID, *in.Questions)
			if err != nil {
				return err
			}
			if err := s.questions.DeleteByQuiz(ctx, tx, quizID); err != nil {
				return fmt.Errorf("delete questions: %w", err)
			}
			if err := s.questions.CreateBatch(ctx, tx, qs); err != nil {
				return fmt.Errorf("insert questions: %w", err)
			}
		}

		full, err := s.quizzes.GetWithQuestions(ctx, tx, quizID)
		if err != nil {
			return fmt.Errorf("reload quiz: %w", err)
		}
		v := toQuizView(*full, full.Questions, true)
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quiz updated", "quiz_id", quizID, "replaced_questions", in.Questions != nil)
	return out, nil
}

// Delete removes the quiz and its questions. Submissions stay as history.
func (s *quizService) Delete(ctx context.Context, quizID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.quizzes.GetByID(ctx, tx, quizID); err != nil {
			return quizNotFound(err)
		}
		if err := s.questions.DeleteByQuiz(ctx, tx, quizID); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := s.quizzes.Delete(ctx, tx, quizID); err != nil {
			return quizNotFound(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("quiz deleted", "quiz_id", quizID)
	return nil
}

func (s *quizService) AddQuestion(ctx context.Context, quizID uuid.UUID, in QuestionInput) (*QuestionView, error) {
	var out *QuestionView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.quizzes.GetByID(ctx, tx, quizID); err != nil {
			return quizNotFound(err)
		}
		existing, err := s.questions.ListByQuiz(ctx, tx, quizID)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}
		if in.OrderIndex == nil {
			next, err := s.questions.NextOrderIndex(ctx, tx, quizID)
			if err != nil {
				return fmt.Errorf("next order index: %w", err)
			}
			in.OrderIndex = &next
		} else {
			for _, q := range existing {
				if q.OrderIndex == *in.OrderIndex {
					return apierr.Validation(fmt.Sprintf("order_index %d is already used in this quiz", *in.OrderIndex))
				}
			}
		}

		qs, err := buildQuestions(quizID, []QuestionInput{in})
		if err != nil {
			return err
		}
		if err := s.questions.CreateBatch(ctx, tx, qs); err != nil {
			return fmt.Errorf("create question: %w", err)
		}
		v := toQuestionView(qs[0], true)
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *quizService) DeleteQuestion(ctx context.Context, quizID, questionID uuid.UUID) error {
	if err := s.questions.Delete(ctx, nil, quizID, questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound(apierr.CodeQuestionNotFound, "Question not found")
		}
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

// ReorderQuestions applies every move or none. Questions not named keep their
// index; the resulting order must still be unique within the quiz.
func (s *quizService) ReorderQuestions(ctx context.Context, quizID uuid.UUID, orders []QuestionOrder) error {
	if len(orders) == 0 {
		return apierr.Validation("question_orders must not be empty")
	}
	seen := make(map[uuid.UUID]struct{}, len(orders))
	for _, o := range orders {
		if o.ID == uuid.Nil {
			return apierr.Validation("question id is required")
		}
		if o.OrderIndex < 0 {
			return apierr.Validation("order_index must not be negative")
		}
		if _, dup := seen[o.ID]; dup {
			return apierr.Validation(fmt.Sprintf("question %s listed twice", o.ID))
		}
		seen[o.ID] = struct{}{}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.quizzes.GetByID(ctx, tx, quizID); err != nil {
			return quizNotFound(err)
		}
		for _, o := range orders {
			if err := s.questions.UpdateOrder(ctx, tx, quizID, o.ID, o.OrderIndex); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apierr.NotFound(apierr.CodeQuestionNotFound, fmt.Sprintf("Question %s not found in quiz", o.ID))
				}
				return fmt.Errorf("update order: %w", err)
			}
		}

		after, err := s.questions.ListByQuiz(ctx, tx, quizID)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}
		used := make(map[int]struct{}, len(after))
		for _, q := range after {
			if _, dup := used[q.OrderIndex]; dup {
				return apierr.Validation(fmt.Sprintf("order_index %d would be used twice", q.OrderIndex))
			}
			used[q.OrderIndex] = struct{}{}
		}
		return nil
	})
}

func (s *quizService) GetAttempt(ctx context.Context, student Viewer, quizID uuid.UUID) (*AttemptView, error) {
	quiz, err := s.quizzes.GetWithQuestions(ctx, nil, quizID)
	if err != nil {
		return nil, quizNotFound(err)
	}
	history, err := s.submissions.ListByQuizAndStudent(ctx, nil, quizID, student.UserID)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	used := int64(len(history))
	set := SelectActiveSet(quiz.TotalSets, history)

	return &AttemptView{
		Quiz:              toQuizView(*quiz, QuestionsInSet(quiz.Questions, set), false),
		SetNumber:         set,
		AttemptsUsed:      used,
		AttemptsRemaining: RemainingAttempts(quiz.AttemptsAllowed, used),
		CanAttempt:        AuthorizeNewAttempt(quiz.AttemptsAllowed, used) == nil,
	}, nil
}

// Submit records one attempt. The quiz row is locked for the whole
// transaction so the attempt count, the set choice and the insert see the
// same history.
func (s *quizService) Submit(ctx context.Context, student Viewer, quizID uuid.UUID, in SubmitInput) (*SubmissionView, error) {
	if in.TimeTakenMinutes < 0 {
		return nil, apierr.Validation("time_taken_minutes must not be negative")
	}
	answers := in.Answers
	if answers == nil {
		answers = map[string]any{}
	}
	rawAnswers, err := json.Marshal(answers)
	if err != nil {
		return nil, apierr.Validation("answers must be a JSON object")
	}

	var out *SubmissionView
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quiz, err := s.quizzes.LockForSubmission(ctx, tx, quizID)
		if err != nil {
			return quizNotFound(err)
		}

		prior, err := s.submissions.CountByQuizAndStudent(ctx, tx, quizID, student.UserID)
		if err != nil {
			return fmt.Errorf("count attempts: %w", err)
		}
		if err := AuthorizeNewAttempt(quiz.AttemptsAllowed, prior); err != nil {
			return err
		}

		history, err := s.submissions.ListByQuizAndStudent(ctx, tx, quizID, student.UserID)
		if err != nil {
			return fmt.Errorf("load submissions: %w", err)
		}
		set := SelectActiveSet(quiz.TotalSets, history)

		all, err := s.questions.ListByQuiz(ctx, tx, quizID)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}

		sub := models.QuizSubmission{
			QuizID:           quizID,
			StudentID:        student.UserID,
			Answers:          datatypes.JSON(rawAnswers),
			SetNumber:        set,
			AttemptNumber:    int(prior) + 1,
			TimeTakenMinutes: in.TimeTakenMinutes,
		}
		var graded *GradeResult
		if quiz.AutoGrade {
			res := Grade(QuestionsInSet(all, set), answers)
			graded = &res
			sub.Score = &res.Score
			sub.Passed = res.Score >= quiz.PassingScore
		}

		if err := s.submissions.Create(ctx, tx, &sub); err != nil {
			return fmt.Errorf("create submission: %w", err)
		}

		v := toSubmissionView(sub)
		v.Answers = answers
		if graded != nil {
			v.EarnedPoints = &graded.EarnedPoints
			v.TotalPoints = &graded.TotalPoints
		}
		out = &v
		return nil
	})
	if err != nil {
		if apierr.IsCode(err, apierr.CodeMaxAttemptsReached) {
			s.log.Info("attempt rejected", "quiz_id", quizID, "student_id", student.UserID)
		}
		return nil, err
	}

	s.log.Info("quiz submitted",
		"quiz_id", quizID,
		"student_id", student.UserID,
		"attempt", out.AttemptNumber,
		"set", out.SetNumber,
		"passed", out.Passed,
	)
	return out, nil
}

// ListSubmissions returns the viewer's own attempts. Authors may look at
// another student's attempts through studentID.
func (s *quizService) ListSubmissions(ctx context.Context, viewer Viewer, quizID uuid.UUID, studentID *uuid.UUID) ([]SubmissionView, error) {
	if _, err := s.quizzes.GetByID(ctx, nil, quizID); err != nil {
		return nil, quizNotFound(err)
	}
	target := viewer.UserID
	if studentID != nil && viewer.CanAuthor() {
		target = *studentID
	}
	rows, err := s.submissions.ListByQuizAndStudent(ctx, nil, quizID, target)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]SubmissionView, 0, len(rows))
	for _, r := range rows {
		out = append(out, toSubmissionView(r))
	}
	return out, nil
}

func validateQuiz(q models.Quiz) error {
	switch {
	case q.Title == "":
		return apierr.Validation("title is required")
	case q.PassingScore < 0 || q.PassingScore > 100:
		return apierr.Validation("passing_score must be between 0 and 100")
	case q.AttemptsAllowed < 0:
		return apierr.Validation("attempts_allowed must not be negative")
	case q.TotalSets < 1:
		return apierr.Validation("total_sets must be at least 1")
	case q.TimeLimitMinutes < 0:
		return apierr.Validation("time_limit_minutes must not be negative")
	}
	return nil
}

// buildQuestions validates inputs and turns them into rows for quizID. A
// missing order_index defaults to the input position.
func buildQuestions(quizID uuid.UUID, inputs []QuestionInput) ([]models.QuizQuestion, error) {
	out := make([]models.QuizQuestion, 0, len(inputs))
	used := make(map[int]struct{}, len(inputs))

	for i, in := range inputs {
		label := fmt.Sprintf("questions[%d]", i)
		if !in.Type.Valid() {
			return nil, apierr.Validation(fmt.Sprintf("%s: unknown type %q", label, in.Type))
		}
		if strings.TrimSpace(in.Text) == "" {
			return nil, apierr.Validation(label + ": text is required")
		}
		if in.Type.NeedsOptions() && len(in.Options) == 0 {
			return nil, apierr.Validation(fmt.Sprintf("%s: options are required for %s", label, in.Type))
		}
		if autoGradable(in.Type) && len(in.CorrectAnswers) == 0 {
			return nil, apierr.Validation(fmt.Sprintf("%s: correct_answers are required for %s", label, in.Type))
		}
		points := defaultPoints
		if in.Points != nil {
			points = *in.Points
		}
		if points <= 0 {
			return nil, apierr.Validation(label + ": points must be positive")
		}
		if in.SetNumber != nil && *in.SetNumber < 1 {
			return nil, apierr.Validation(label + ": set_number must be at least 1")
		}
		order := i
		if in.OrderIndex != nil {
			order = *in.OrderIndex
		}
		if order < 0 {
			return nil, apierr.Validation(label + ": order_index must not be negative")
		}
		if _, dup := used[order]; dup {
			return nil, apierr.Validation(fmt.Sprintf("%s: order_index %d is used twice", label, order))
		}
		used[order] = struct{}{}

		options, err := models.EncodeList(in.Options)
		if err != nil {
			return nil, apierr.Validation(label + ": options are not valid JSON")
		}
		correct, err := models.EncodeList(in.CorrectAnswers)
		if err != nil {
			return nil, apierr.Validation(label + ": correct_answers are not valid JSON")
		}

		out = append(out, models.QuizQuestion{
			QuizID:         quizID,
			Type:           in.Type,
			Text:           in.Text,
			Options:        options,
			CorrectAnswers: correct,
			Points:         points,
			OrderIndex:     order,
			SetNumber:      in.SetNumber,
			Explanation:    in.Explanation,
		})
	}
	return out, nil
}

func autoGradable(t models.QuestionType) bool {
	return t != models.QuestionDescriptive && t != models.QuestionCode
}

func decodeAnswers(raw datatypes.JSON) map[string]any {
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

func quizNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierr.NotFound(apierr.CodeQuizNotFound, "Quiz not found")
	}
	return err
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
