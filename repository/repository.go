// Package repository is the persistence gateway: one interface per aggregate,
// backed by gorm. Every method accepts an optional transaction handle; nil
// means the repository's own connection.
package repository

import (
	"gorm.io/gorm"

	"github.com/vnkhanh/e-learning-backend/logger"
)

func pick(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

type Repos struct {
	Quizzes       QuizRepo
	Questions     QuestionRepo
	Submissions   SubmissionRepo
	Lessons       LessonRepo
	Embeddings    EmbeddingRepo
	Conversations ConversationRepo
}

func NewRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Quizzes:       NewQuizRepo(db, log),
		Questions:     NewQuestionRepo(db, log),
		Submissions:   NewSubmissionRepo(db, log),
		Lessons:       NewLessonRepo(db, log),
		Embeddings:    NewEmbeddingRepo(db, log),
		Conversations: NewConversationRepo(db, log),
	}
}
