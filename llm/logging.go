package llm

import (
	"context"
	"time"

	"github.com/vnkhanh/e-learning-backend/logger"
)

// LoggingGenerator records latency and outcome of every generation call.
type LoggingGenerator struct {
	inner Generator
	log   *logger.Logger
}

func WithLogging(g Generator, log *logger.Logger) Generator {
	return &LoggingGenerator{inner: g, log: log.With("component", "llm", "model", g.ModelID())}
}

func (l *LoggingGenerator) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := l.inner.Generate(ctx, req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		l.log.Warn("generation failed", "latency_ms", latency, "error", err)
		return out, err
	}
	l.log.Debug("generation ok", "latency_ms", latency, "response_len", len(out))
	return out, nil
}

func (l *LoggingGenerator) ModelID() string { return l.inner.ModelID() }

type LoggingEmbedder struct {
	inner Embedder
	log   *logger.Logger
}

func WithEmbedLogging(e Embedder, log *logger.Logger) Embedder {
	return &LoggingEmbedder{inner: e, log: log.With("component", "llm", "model", e.ModelID())}
}

func (l *LoggingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	out, err := l.inner.Embed(ctx, text)
	if err != nil {
		l.log.Warn("embedding failed", "latency_ms", time.Since(start).Milliseconds(), "error", err)
	}
	return out, err
}

func (l *LoggingEmbedder) ModelID() string { return l.inner.ModelID() }
