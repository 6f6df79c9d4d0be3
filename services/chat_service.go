package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-learning-backend/apierr"
	"github.com/vnkhanh/e-learning-backend/llm"
	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/repository"
)

const (
	RefusalMessage  = "I'm sorry, but I can only help with academic questions related to your courses."
	FallbackMessage = "Sorry, I could not generate a response."

	DefaultTopK        = 3
	DefaultChatTimeout = 30 * time.Second
	maxMessageRunes    = 4000
)

type ChatRequest struct {
	Message  string     `json:"message"`
	CourseID *uuid.UUID `json:"courseId"`
	LessonID *uuid.UUID `json:"lessonId"`
}

type ChatResponse struct {
	Response       string    `json:"response"`
	ConversationID uuid.UUID `json:"conversationId"`
}

type ChatOptions struct {
	TopK        int
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

type ChatService interface {
	Chat(ctx context.Context, userID uuid.UUID, req ChatRequest) (*ChatResponse, error)
	GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (*models.AIConversation, error)
}

type chatService struct {
	log           *logger.Logger
	lessons       repository.LessonRepo
	embeddings    repository.EmbeddingRepo
	conversations repository.ConversationRepo
	embedder      llm.Embedder
	generator     llm.Generator
	opts          ChatOptions
}

func NewChatService(
	baseLog *logger.Logger,
	lessons repository.LessonRepo,
	embeddings repository.EmbeddingRepo,
	conversations repository.ConversationRepo,
	embedder llm.Embedder,
	generator llm.Generator,
	opts ChatOptions,
) ChatService {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultChatTimeout
	}
	return &chatService{
		log:           baseLog.With("service", "ChatService"),
		lessons:       lessons,
		embeddings:    embeddings,
		conversations: conversations,
		embedder:      embedder,
		generator:     generator,
		opts:          opts,
	}
}

// Chat answers one question. Provider failures of any kind, including the
// generation deadline, surface as apierr.Unavailable and never leak the
// provider's own error text.
func (s *chatService) Chat(ctx context.Context, userID uuid.UUID, req ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apierr.Validation("message is required")
	}
	if utf8.RuneCountInString(message) > maxMessageRunes {
		return nil, apierr.Validation(fmt.Sprintf("message must be at most %d characters", maxMessageRunes))
	}

	scope := repository.Scope{LessonID: req.LessonID, CourseID: req.CourseID}
	if scope.LessonID != nil {
		// A lesson scope is narrower; the course is kept only on the conversation.
		scope.CourseID = nil
	}

	// The query embedding and the scope check are independent. A missing
	// lesson or course wins over a provider failure so the status is stable.
	var (
		queryVec []float32
		embedErr error
		scopeErr error
		g        errgroup.Group
	)
	if !scope.Empty() {
		g.Go(func() error {
			queryVec, embedErr = s.embedQuery(ctx, message)
			return nil
		})
	}
	g.Go(func() error {
		scopeErr = s.checkScope(ctx, scope)
		return nil
	})
	_ = g.Wait()
	for _, err := range []error{scopeErr, embedErr} {
		if err != nil {
			s.logFailure("chat scope or embedding failed", userID, err)
			return nil, err
		}
	}

	chatContext, err := s.retrieve(ctx, queryVec, scope)
	if err != nil {
		return nil, err
	}

	conv := models.AIConversation{UserID: userID, CourseID: req.CourseID, LessonID: req.LessonID}
	if err := s.conversations.Create(ctx, nil, &conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	answer, err := s.generate(ctx, BuildSystemPrompt(chatContext), message)
	if err != nil {
		s.logFailure("chat generation failed", userID, err)
		return nil, err
	}

	if _, err := s.conversations.AppendMessages(ctx, nil, conv.ID,
		models.AIMessage{Role: models.MessageRoleUser, Content: message},
		models.AIMessage{Role: models.MessageRoleAssistant, Content: answer},
	); err != nil {
		return nil, fmt.Errorf("store messages: %w", err)
	}

	s.log.Info("chat answered",
		"user_id", userID,
		"conversation_id", conv.ID,
		"context_chars", len(chatContext),
	)
	return &ChatResponse{Response: answer, ConversationID: conv.ID}, nil
}

func (s *chatService) GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (*models.AIConversation, error) {
	conv, err := s.conversations.GetWithMessages(ctx, nil, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(apierr.CodeConversationNotFound, "Conversation not found")
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv.UserID != userID {
		return nil, apierr.NotFound(apierr.CodeConversationNotFound, "Conversation not found")
	}
	return conv, nil
}

// embedQuery rejects vectors that cannot be compared with stored segments.
func (s *chatService) embedQuery(ctx context.Context, message string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, message)
	if err != nil {
		return nil, apierr.Unavailable(fmt.Errorf("embed query: %w", err))
	}
	if len(vec) != models.EmbeddingDimensions {
		return nil, apierr.Unavailable(
			fmt.Errorf("query embedding has %d dimensions, want %d", len(vec), models.EmbeddingDimensions))
	}
	return vec, nil
}

func (s *chatService) checkScope(ctx context.Context, scope repository.Scope) error {
	switch {
	case scope.LessonID != nil:
		if _, err := s.lessons.GetByID(ctx, nil, *scope.LessonID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound(apierr.CodeLessonNotFound, "Lesson not found")
			}
			return fmt.Errorf("load lesson: %w", err)
		}
	case scope.CourseID != nil:
		ok, err := s.lessons.CourseExists(ctx, nil, *scope.CourseID)
		if err != nil {
			return fmt.Errorf("load course: %w", err)
		}
		if !ok {
			return apierr.NotFound(apierr.CodeCourseNotFound, "Course not found")
		}
	}
	return nil
}

// retrieve joins the nearest segments with newlines. No scope means no
// context at all.
func (s *chatService) retrieve(ctx context.Context, query []float32, scope repository.Scope) (string, error) {
	if scope.Empty() {
		return "", nil
	}
	matches, err := s.embeddings.Nearest(ctx, nil, query, scope, s.opts.TopK)
	if err != nil {
		return "", fmt.Errorf("search segments: %w", err)
	}
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.ContentChunk)
	}
	return strings.Join(parts, "\n"), nil
}

func (s *chatService) generate(ctx context.Context, system, message string) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	out, err := s.generator.Generate(gctx, llm.Request{
		System:      system,
		Message:     message,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		var empty *llm.ErrEmptyResponse
		if errors.As(err, &empty) {
			return FallbackMessage, nil
		}
		return "", apierr.Unavailable(err)
	}
	if strings.TrimSpace(out) == "" {
		return FallbackMessage, nil
	}
	return out, nil
}

func (s *chatService) logFailure(msg string, userID uuid.UUID, err error) {
	if e, ok := apierr.As(err); ok && e.Status < 500 {
		s.log.Info(msg, "user_id", userID, "code", e.Code)
		return
	}
	s.log.Error(msg, "user_id", userID, "error", err)
}

// BuildSystemPrompt constrains the model to the retrieved material. Whether
// a question is academic is left to the model; it is told to answer
// non-academic ones with RefusalMessage verbatim.
func BuildSystemPrompt(chatContext string) string {
	material := strings.TrimSpace(chatContext)
	if material == "" {
		material = "(no course material was found for this question)"
	}

	var b strings.Builder
	b.WriteString("You are an academic teaching assistant for an online learning platform.\n")
	b.WriteString("Answer the student's question using the course material below.\n")
	b.WriteString("If the material does not cover the question, you may still answer from general academic knowledge.\n")
	b.WriteString("If the question is clearly not academic, such as sports results or celebrity news, reply with exactly this sentence and nothing else:\n")
	b.WriteString(RefusalMessage)
	b.WriteString("\n\nCourse material:\n")
	b.WriteString(material)
	return b.String()
}
