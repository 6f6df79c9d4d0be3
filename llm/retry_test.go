package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: "hello"})
	g := WithRetry(mock, retryConfig())

	out, err := g.Generate(context.Background(), Request{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("slow down")}},
		MockResponse{Content: "ok"},
	)
	g := WithRetry(mock, retryConfig())

	out, err := g.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, mock.CallCount())
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	down := &ErrProviderUnavailable{Err: errors.New("down")}
	mock := NewMockProvider(
		MockResponse{Err: down},
		MockResponse{Err: down},
		MockResponse{Err: down},
		MockResponse{Content: "never reached"},
	)
	g := WithRetry(mock, retryConfig())

	_, err := g.Generate(context.Background(), Request{})
	require.Error(t, err)
	var unavail *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail)
	assert.Equal(t, 3, mock.CallCount())
}

func TestRetry_EmptyResponseNotRetried(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: ""}, MockResponse{Content: "late"})
	g := WithRetry(mock, retryConfig())

	_, err := g.Generate(context.Background(), Request{})
	var empty *ErrEmptyResponse
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_RejectedRequestNotRetried(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRequestRejected{Status: 403, Err: errors.New("forbidden")}},
		MockResponse{Content: "late"},
	)
	g := WithRetry(mock, retryConfig())

	_, err := g.Generate(context.Background(), Request{})
	var rejected *ErrRequestRejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, 1, mock.CallCount())
}

func TestClassifyStatus(t *testing.T) {
	cause := errors.New("boom")
	var rl *ErrRateLimit
	var rejected *ErrRequestRejected
	var down *ErrProviderUnavailable

	assert.ErrorAs(t, classifyStatus(429, cause), &rl)
	assert.ErrorAs(t, classifyStatus(400, cause), &rejected)
	assert.ErrorAs(t, classifyStatus(401, cause), &rejected)
	assert.ErrorAs(t, classifyStatus(500, cause), &down)
	assert.ErrorAs(t, classifyStatus(503, cause), &down)
	assert.ErrorIs(t, classifyStatus(404, cause), cause)
}

func TestRetry_DeadlineNotRetried(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: context.DeadlineExceeded},
		MockResponse{Content: "late"},
	)
	g := WithRetry(mock, retryConfig())

	_, err := g.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_CancelledWhileWaiting(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{}},
		MockResponse{Content: "late"},
	)
	cfg := retryConfig()
	cfg.InitialWait = time.Second
	cfg.MaxWait = time.Second
	g := WithRetry(mock, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, mock.CallCount())
}

func TestEmbedRetry_TransientThenSuccess(t *testing.T) {
	flaky := &flakyEmbedder{inner: &HashEmbedder{Dims: 8}, failures: 1}
	e := WithEmbedRetry(flaky, retryConfig())

	vec, err := e.Embed(context.Background(), "safety first")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, 2, flaky.calls)
}

func TestDefaultRetryConfig(t *testing.T) {
	assert.Equal(t, 3, DefaultRetryConfig(2).MaxAttempts)
	assert.Equal(t, 1, DefaultRetryConfig(-1).MaxAttempts)
}

type flakyEmbedder struct {
	inner    Embedder
	failures int
	calls    int
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, &ErrProviderUnavailable{Err: errors.New("blip")}
	}
	return f.inner.Embed(ctx, text)
}

func (f *flakyEmbedder) ModelID() string { return "flaky" }
