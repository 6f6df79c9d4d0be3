package llm

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/vnkhanh/e-learning-backend/models"
)

// MockResponse is a canned reply for MockProvider.
type MockResponse struct {
	Content string
	Err     error
}

// MockProvider is a deterministic Generator for testing. It returns canned
// responses in FIFO order and records all requests. Once the queue is empty
// it defers to Fallback, or fails with ErrProviderUnavailable.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
	Fallback  func(Request) (string, error)
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		fallback := m.Fallback
		m.mu.Unlock()
		if fallback != nil {
			return fallback(req)
		}
		return "", &ErrProviderUnavailable{}
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	m.mu.Unlock()

	if resp.Err != nil {
		return "", resp.Err
	}
	if resp.Content == "" {
		return "", &ErrEmptyResponse{Provider: "mock"}
	}
	return resp.Content, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockProvider) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return Request{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

// HashEmbedder is an offline bag-of-words embedder: every lowercase word is
// hashed into one of Dims buckets. Texts sharing words land close together
// under cosine distance, which is enough to exercise retrieval.
type HashEmbedder struct {
	Dims int
	// When Err is set, calls beyond the first FailAfter return it.
	FailAfter int
	Err       error

	mu    sync.Mutex
	calls int
}

func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{Dims: models.EmbeddingDimensions}
}

func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.calls++
	n := h.calls
	h.mu.Unlock()

	if h.Err != nil && n > h.FailAfter {
		return nil, h.Err
	}

	dims := h.Dims
	if dims <= 0 {
		dims = models.EmbeddingDimensions
	}
	vec := make([]float32, dims)
	for _, word := range tokenize(text) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(word))
		vec[f.Sum32()%uint32(dims)]++
	}
	return vec, nil
}

func (h *HashEmbedder) ModelID() string { return "hash" }

func (h *HashEmbedder) CallCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
