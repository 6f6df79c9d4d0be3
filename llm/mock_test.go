package llm

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cos(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	h := NewHashEmbedder()
	a, err := h.Embed(context.Background(), "What is IOSH?")
	require.NoError(t, err)
	b, err := h.Embed(context.Background(), "what is iosh")
	require.NoError(t, err)
	assert.Len(t, a, 768)
	assert.Equal(t, a, b)
}

func TestHashEmbedder_RelatedTextIsCloser(t *testing.T) {
	h := NewHashEmbedder()
	ctx := context.Background()
	q, _ := h.Embed(ctx, "What is IOSH?")
	related, _ := h.Embed(ctx, "IOSH is Institution of Occupational Safety and Health.")
	unrelated, _ := h.Embed(ctx, "Photosynthesis converts light into chemical energy.")

	assert.Greater(t, cos(q, related), cos(q, unrelated))
}

func TestHashEmbedder_FailAfter(t *testing.T) {
	boom := errors.New("quota")
	h := &HashEmbedder{Dims: 4, FailAfter: 2, Err: boom}
	ctx := context.Background()

	_, err := h.Embed(ctx, "one")
	require.NoError(t, err)
	_, err = h.Embed(ctx, "two")
	require.NoError(t, err)
	_, err = h.Embed(ctx, "three")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, h.CallCount())
}

func TestMockProvider_FIFOThenFallback(t *testing.T) {
	m := NewMockProvider(MockResponse{Content: "first"})
	m.Fallback = func(req Request) (string, error) { return "echo " + req.Message, nil }

	out, err := m.Generate(context.Background(), Request{Message: "a"})
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	out, err = m.Generate(context.Background(), Request{Message: "b"})
	require.NoError(t, err)
	assert.Equal(t, "echo b", out)

	last, ok := m.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "b", last.Message)
}

func TestMockProvider_EmptyQueueIsUnavailable(t *testing.T) {
	_, err := NewMockProvider().Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail)
}
