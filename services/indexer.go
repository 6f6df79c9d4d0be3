package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-learning-backend/apierr"
	"github.com/vnkhanh/e-learning-backend/llm"
	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/repository"
)

const DefaultChunkSize = 1000

type IndexStatus string

const (
	IndexStarted   IndexStatus = "started"
	IndexProgress  IndexStatus = "progress"
	IndexCompleted IndexStatus = "completed"
	IndexSkipped   IndexStatus = "skipped"
	IndexFailed    IndexStatus = "failed"
)

type IndexEvent struct {
	LessonID uuid.UUID   `json:"lesson_id"`
	Status   IndexStatus `json:"status"`
	Chunk    int         `json:"chunk,omitempty"`
	Total    int         `json:"total,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// IndexNotifier receives progress while a lesson is being indexed.
type IndexNotifier interface {
	NotifyIndex(ev IndexEvent)
}

type IndexResult struct {
	LessonID uuid.UUID `json:"lesson_id"`
	Chunks   int       `json:"chunks"`
	Replaced int64     `json:"replaced"`
	Skipped  bool      `json:"skipped"`
}

type IndexService interface {
	IndexLesson(ctx context.Context, lessonID uuid.UUID) (*IndexResult, error)
	IndexCourse(ctx context.Context, courseID uuid.UUID) ([]IndexResult, error)
}

type indexService struct {
	log        *logger.Logger
	lessons    repository.LessonRepo
	embeddings repository.EmbeddingRepo
	embedder   llm.Embedder
	notifier   IndexNotifier
	chunkSize  int
}

func NewIndexService(
	baseLog *logger.Logger,
	lessons repository.LessonRepo,
	embeddings repository.EmbeddingRepo,
	embedder llm.Embedder,
	notifier IndexNotifier,
	chunkSize int,
) IndexService {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &indexService{
		log:        baseLog.With("service", "IndexService"),
		lessons:    lessons,
		embeddings: embeddings,
		embedder:   embedder,
		notifier:   notifier,
		chunkSize:  chunkSize,
	}
}

// IndexLesson rebuilds the lesson's segments from scratch. There is no outer
// transaction: if the embedder fails halfway the rows written so far stay,
// and running it again starts over with a full delete.
func (s *indexService) IndexLesson(ctx context.Context, lessonID uuid.UUID) (*IndexResult, error) {
	lesson, err := s.lessons.GetByID(ctx, nil, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(apierr.CodeLessonNotFound, "Lesson not found")
		}
		return nil, fmt.Errorf("load lesson: %w", err)
	}

	text := LessonText(lesson.Content)
	if strings.TrimSpace(text) == "" {
		s.notify(IndexEvent{LessonID: lessonID, Status: IndexSkipped})
		s.log.Debug("lesson has no content, skipping index", "lesson_id", lessonID)
		return &IndexResult{LessonID: lessonID, Skipped: true}, nil
	}

	chunks := ChunkText(text, s.chunkSize)
	s.notify(IndexEvent{LessonID: lessonID, Status: IndexStarted, Total: len(chunks)})

	replaced, err := s.embeddings.DeleteByLesson(ctx, nil, lessonID)
	if err != nil {
		return nil, s.fail(lessonID, fmt.Errorf("delete old segments: %w", err))
	}

	for i, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, s.fail(lessonID, apierr.Unavailable(fmt.Errorf("embed chunk %d: %w", i, err)))
		}
		if len(vec) != models.EmbeddingDimensions {
			return nil, s.fail(lessonID, apierr.Unavailable(
				fmt.Errorf("embedder returned %d dimensions, want %d", len(vec), models.EmbeddingDimensions)))
		}
		row := models.LessonEmbedding{
			LessonID:     lessonID,
			ChunkIndex:   i,
			ContentChunk: chunk,
			Embedding:    pgvector.NewVector(vec),
		}
		if err := s.embeddings.Create(ctx, nil, &row); err != nil {
			return nil, s.fail(lessonID, fmt.Errorf("store chunk %d: %w", i, err))
		}
		s.notify(IndexEvent{LessonID: lessonID, Status: IndexProgress, Chunk: i + 1, Total: len(chunks)})
	}

	s.notify(IndexEvent{LessonID: lessonID, Status: IndexCompleted, Chunk: len(chunks), Total: len(chunks)})
	s.log.Info("lesson indexed", "lesson_id", lessonID, "chunks", len(chunks), "replaced", replaced)
	return &IndexResult{LessonID: lessonID, Chunks: len(chunks), Replaced: replaced}, nil
}

// IndexCourse indexes every lesson of the course in curriculum order and
// stops at the first failure.
func (s *indexService) IndexCourse(ctx context.Context, courseID uuid.UUID) ([]IndexResult, error) {
	ok, err := s.lessons.CourseExists(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if !ok {
		return nil, apierr.NotFound(apierr.CodeCourseNotFound, "Course not found")
	}
	ids, err := s.lessons.ListIDsByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}

	out := make([]IndexResult, 0, len(ids))
	for _, id := range ids {
		res, err := s.IndexLesson(ctx, id)
		if err != nil {
			return out, err
		}
		out = append(out, *res)
	}
	return out, nil
}

func (s *indexService) notify(ev IndexEvent) {
	if s.notifier != nil {
		s.notifier.NotifyIndex(ev)
	}
}

func (s *indexService) fail(lessonID uuid.UUID, err error) error {
	s.log.Error("lesson index failed", "lesson_id", lessonID, "error", err)
	s.notify(IndexEvent{LessonID: lessonID, Status: IndexFailed, Error: "indexing failed"})
	return err
}

// LessonText turns stored lesson content into indexable text. A JSON string
// is used as-is; any other JSON value is indexed in its serialized form.
func LessonText(content datatypes.JSON) string {
	raw := strings.TrimSpace(string(content))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}
	return raw
}

// ChunkText splits text into pieces of exactly size characters; the last
// piece may be shorter. Boundaries ignore words and sentences.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	out := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
