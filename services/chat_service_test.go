package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-learning-backend/apierr"
	"github.com/vnkhanh/e-learning-backend/llm"
	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/repository"
	"github.com/vnkhanh/e-learning-backend/testutil"
)

const ioshFact = "IOSH is Institution of Occupational Safety and Health."

type chatFixture struct {
	db        *gorm.DB
	svc       ChatService
	indexer   IndexService
	embedder  *llm.HashEmbedder
	generator llm.Generator
}

func newChatFixture(t *testing.T, generator llm.Generator, opts ChatOptions) *chatFixture {
	t.Helper()
	db := testutil.NewDB(t)
	log := logger.Nop()
	embedder := llm.NewHashEmbedder()
	lessons := repository.NewLessonRepo(db, log)
	embeddings := repository.NewEmbeddingRepo(db, log)

	return &chatFixture{
		db:        db,
		svc:       NewChatService(log, lessons, embeddings, repository.NewConversationRepo(db, log), embedder, generator, opts),
		indexer:   NewIndexService(log, lessons, embeddings, embedder, nil, 0),
		embedder:  embedder,
		generator: generator,
	}
}

// groundedModel stands in for a model that follows the system prompt: it
// refuses sports trivia and otherwise answers from the course material.
func groundedModel() *llm.MockProvider {
	m := llm.NewMockProvider()
	m.Fallback = func(req llm.Request) (string, error) {
		if strings.Contains(req.Message, "World Cup") {
			return RefusalMessage, nil
		}
		_, material, _ := strings.Cut(req.System, "Course material:\n")
		return "According to your course: " + material, nil
	}
	return m
}

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ llm.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingGenerator) ModelID() string { return "blocking" }

func TestChat_AnswersFromLessonContent(t *testing.T) {
	model := groundedModel()
	f := newChatFixture(t, model, ChatOptions{})
	ctx := context.Background()

	course, _, lesson := testutil.SeedLesson(t, f.db, ioshFact)
	other := testutil.SeedLessonIn(t, f.db, course.ID, "Photosynthesis converts light into chemical energy.")
	_, err := f.indexer.IndexLesson(ctx, lesson.ID)
	require.NoError(t, err)
	_, err = f.indexer.IndexLesson(ctx, other.ID)
	require.NoError(t, err)

	userID := uuid.New()
	resp, err := f.svc.Chat(ctx, userID, ChatRequest{Message: "What is IOSH?", LessonID: &lesson.ID})
	require.NoError(t, err)
	assert.Contains(t, resp.Response, ioshFact)
	assert.NotContains(t, resp.Response, "Photosynthesis")

	req, ok := model.LastRequest()
	require.True(t, ok)
	assert.Contains(t, req.System, ioshFact)
	assert.Contains(t, req.System, RefusalMessage)
	assert.Equal(t, "What is IOSH?", req.Message)
}

func TestChat_CourseScopeReachesAllLessons(t *testing.T) {
	model := groundedModel()
	f := newChatFixture(t, model, ChatOptions{})
	ctx := context.Background()

	course, _, first := testutil.SeedLesson(t, f.db, "Hazards are sources of harm.")
	second := testutil.SeedLessonIn(t, f.db, course.ID, ioshFact)
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		_, err := f.indexer.IndexLesson(ctx, id)
		require.NoError(t, err)
	}

	resp, err := f.svc.Chat(ctx, uuid.New(), ChatRequest{Message: "What is IOSH?", CourseID: &course.ID})
	require.NoError(t, err)
	assert.Contains(t, resp.Response, ioshFact)
}

func TestChat_TopKLimitsContext(t *testing.T) {
	model := groundedModel()
	f := newChatFixture(t, model, ChatOptions{TopK: 2})
	ctx := context.Background()

	_, _, lesson := testutil.SeedLesson(t, f.db, strings.Repeat("q", 5000))
	_, err := f.indexer.IndexLesson(ctx, lesson.ID)
	require.NoError(t, err)

	_, err = f.svc.Chat(ctx, uuid.New(), ChatRequest{Message: "q", LessonID: &lesson.ID})
	require.NoError(t, err)

	req, _ := model.LastRequest()
	_, material, _ := strings.Cut(req.System, "Course material:\n")
	assert.Len(t, strings.Split(material, "\n"), 2)
}

func TestChat_RefusesNonAcademicQuestions(t *testing.T) {
	f := newChatFixture(t, groundedModel(), ChatOptions{})
	ctx := context.Background()

	course, _, lesson := testutil.SeedLesson(t, f.db, ioshFact)
	_, err := f.indexer.IndexLesson(ctx, lesson.ID)
	require.NoError(t, err)

	resp, err := f.svc.Chat(ctx, uuid.New(), ChatRequest{Message: "Who won the World Cup in 2022?", CourseID: &course.ID})
	require.NoError(t, err)
	assert.Equal(t, RefusalMessage, resp.Response)
}

func TestChat_ProviderFailureIsUnavailable(t *testing.T) {
	for name, gen := range map[string]llm.Generator{
		"connection reset": llm.NewMockProvider(llm.MockResponse{Err: errors.New("read tcp: connection reset by peer")}),
		"rate limited":     llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429 from upstream")}}),
		"timeout":          blockingGenerator{},
	} {
		t.Run(name, func(t *testing.T) {
			f := newChatFixture(t, gen, ChatOptions{Timeout: 20 * time.Millisecond})

			_, err := f.svc.Chat(context.Background(), uuid.New(), ChatRequest{Message: "Explain risk assessment"})
			require.Error(t, err)

			e, ok := apierr.As(err)
			require.True(t, ok, "got untyped error %v", err)
			assert.Equal(t, 503, e.Status)
			assert.Equal(t, apierr.CodeServiceUnavailable, e.Code)
			assert.Equal(t, apierr.UnavailableMessage, err.Error())
			assert.NotContains(t, err.Error(), "connection reset")
			assert.NotContains(t, err.Error(), "429")
		})
	}
}

func TestChat_EmbeddingFailureIsUnavailable(t *testing.T) {
	f := newChatFixture(t, groundedModel(), ChatOptions{})
	_, _, lesson := testutil.SeedLesson(t, f.db, ioshFact)
	f.embedder.Err = errors.New("embedding quota")

	_, err := f.svc.Chat(context.Background(), uuid.New(), ChatRequest{Message: "What is IOSH?", LessonID: &lesson.ID})
	assert.True(t, apierr.IsCode(err, apierr.CodeServiceUnavailable))
	assert.NotContains(t, err.Error(), "quota")
}

func TestChat_WrongEmbeddingWidthIsUnavailable(t *testing.T) {
	model := groundedModel()
	f := newChatFixture(t, model, ChatOptions{})
	ctx := context.Background()
	_, _, lesson := testutil.SeedLesson(t, f.db, ioshFact)
	_, err := f.indexer.IndexLesson(ctx, lesson.ID)
	require.NoError(t, err)

	log := logger.Nop()
	narrow := NewChatService(log,
		repository.NewLessonRepo(f.db, log),
		repository.NewEmbeddingRepo(f.db, log),
		repository.NewConversationRepo(f.db, log),
		&llm.HashEmbedder{Dims: 16}, model, ChatOptions{})

	resp, err := narrow.Chat(ctx, uuid.New(), ChatRequest{Message: "What is IOSH?", LessonID: &lesson.ID})
	assert.Nil(t, resp)
	assert.True(t, apierr.IsCode(err, apierr.CodeServiceUnavailable), "got %v", err)
	assert.Zero(t, model.CallCount())
}

func TestChat_MissingScopeWinsOverEmbeddingFailure(t *testing.T) {
	f := newChatFixture(t, groundedModel(), ChatOptions{})
	f.embedder.Err = errors.New("embedding quota")
	missing := uuid.New()

	for i := 0; i < 20; i++ {
		_, err := f.svc.Chat(context.Background(), uuid.New(), ChatRequest{Message: "What is IOSH?", LessonID: &missing})
		require.True(t, apierr.IsCode(err, apierr.CodeLessonNotFound), "run %d: %v", i, err)
	}
}

func TestChat_EmptyCompletionUsesFallback(t *testing.T) {
	f := newChatFixture(t, llm.NewMockProvider(llm.MockResponse{Content: ""}), ChatOptions{})

	resp, err := f.svc.Chat(context.Background(), uuid.New(), ChatRequest{Message: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, FallbackMessage, resp.Response)
}

func TestChat_WithoutScopeSkipsRetrieval(t *testing.T) {
	model := groundedModel()
	f := newChatFixture(t, model, ChatOptions{})

	_, err := f.svc.Chat(context.Background(), uuid.New(), ChatRequest{Message: "What is a hazard?"})
	require.NoError(t, err)
	assert.Zero(t, f.embedder.CallCount())

	req, _ := model.LastRequest()
	assert.Contains(t, req.System, "no course material")
}

func TestChat_PersistsConversation(t *testing.T) {
	f := newChatFixture(t, llm.NewMockProvider(llm.MockResponse{Content: "A hazard is a source of harm."}), ChatOptions{})
	ctx := context.Background()
	userID := uuid.New()

	resp, err := f.svc.Chat(ctx, userID, ChatRequest{Message: "  What is a hazard?  "})
	require.NoError(t, err)

	conv, err := f.svc.GetConversation(ctx, userID, resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, models.MessageRoleUser, conv.Messages[0].Role)
	assert.Equal(t, "What is a hazard?", conv.Messages[0].Content)
	assert.Equal(t, 1, conv.Messages[0].Seq)
	assert.Equal(t, models.MessageRoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "A hazard is a source of harm.", conv.Messages[1].Content)
	assert.Equal(t, 2, conv.Messages[1].Seq)

	_, err = f.svc.GetConversation(ctx, uuid.New(), resp.ConversationID)
	assert.True(t, apierr.IsCode(err, apierr.CodeConversationNotFound))
}

func TestChat_OneConversationPerCall(t *testing.T) {
	f := newChatFixture(t, groundedModel(), ChatOptions{})
	ctx := context.Background()
	userID := uuid.New()

	a, err := f.svc.Chat(ctx, userID, ChatRequest{Message: "first"})
	require.NoError(t, err)
	b, err := f.svc.Chat(ctx, userID, ChatRequest{Message: "second"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ConversationID, b.ConversationID)
}

func TestChat_ValidationAndMissingScope(t *testing.T) {
	f := newChatFixture(t, groundedModel(), ChatOptions{})
	ctx := context.Background()

	_, err := f.svc.Chat(ctx, uuid.New(), ChatRequest{Message: "   "})
	assert.True(t, apierr.IsCode(err, apierr.CodeValidationFailed))

	_, err = f.svc.Chat(ctx, uuid.New(), ChatRequest{Message: strings.Repeat("x", 4001)})
	assert.True(t, apierr.IsCode(err, apierr.CodeValidationFailed))

	missing := uuid.New()
	_, err = f.svc.Chat(ctx, uuid.New(), ChatRequest{Message: "hi", LessonID: &missing})
	assert.True(t, apierr.IsCode(err, apierr.CodeLessonNotFound))

	_, err = f.svc.Chat(ctx, uuid.New(), ChatRequest{Message: "hi", CourseID: &missing})
	assert.True(t, apierr.IsCode(err, apierr.CodeCourseNotFound))
}

func TestBuildSystemPrompt(t *testing.T) {
	p := BuildSystemPrompt("chunk one\nchunk two")
	assert.True(t, strings.HasSuffix(p, "Course material:\nchunk one\nchunk two"))
	assert.Contains(t, p, RefusalMessage)
}
