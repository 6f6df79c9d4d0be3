package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vnkhanh/e-learning-backend/config"
	"github.com/vnkhanh/e-learning-backend/logger"
)

// Providers holds the process-wide AI clients. When generation and
// embeddings both use Gemini they share one client.
type Providers struct {
	Generator Generator
	Embedder  Embedder

	closers []io.Closer
}

// Close releases every underlying client.
func (p *Providers) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c.Close())
	}
	p.closers = nil
	return errors.Join(errs...)
}

// NewProviders builds the configured generator and embedder, each wrapped as
// caller → retry → logging → provider.
func NewProviders(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (*Providers, error) {
	b := &builder{ctx: ctx, cfg: cfg}
	gen, err := b.generator()
	if err != nil {
		_ = b.close()
		return nil, err
	}
	emb, err := b.embedder()
	if err != nil {
		_ = b.close()
		return nil, err
	}
	return &Providers{
		Generator: wrapGenerator(gen, cfg, log),
		Embedder:  wrapEmbedder(emb, cfg, log),
		closers:   b.closers,
	}, nil
}

// NewEmbeddingProviders builds only the embedder, for tools that never
// generate text.
func NewEmbeddingProviders(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (*Providers, error) {
	b := &builder{ctx: ctx, cfg: cfg}
	emb, err := b.embedder()
	if err != nil {
		_ = b.close()
		return nil, err
	}
	return &Providers{Embedder: wrapEmbedder(emb, cfg, log), closers: b.closers}, nil
}

type builder struct {
	ctx     context.Context
	cfg     config.AIConfig
	gemini  *GeminiProvider
	closers []io.Closer
}

func (b *builder) close() error {
	return (&Providers{closers: b.closers}).Close()
}

func (b *builder) geminiProvider() (*GeminiProvider, error) {
	if b.gemini != nil {
		return b.gemini, nil
	}
	p, err := NewGeminiProvider(b.ctx, GeminiConfig{
		APIKey:     b.cfg.GeminiAPIKey,
		Model:      b.cfg.GeminiModel,
		EmbedModel: b.cfg.GeminiEmbedModel,
	})
	if err != nil {
		return nil, err
	}
	b.gemini = p
	b.closers = append(b.closers, p)
	return p, nil
}

func (b *builder) generator() (Generator, error) {
	var base Generator
	var err error

	switch b.cfg.GenerationProvider {
	case "gemini":
		base, err = b.geminiProvider()
	case "openai":
		base, err = NewOpenAIProvider(openAIConfig(b.cfg))
	case "anthropic":
		base, err = NewAnthropicProvider(AnthropicConfig{APIKey: b.cfg.AnthropicAPIKey, Model: b.cfg.AnthropicModel})
	case "mock":
		mock := NewMockProvider()
		mock.Fallback = func(req Request) (string, error) {
			return "mock response to: " + req.Message, nil
		}
		return mock, nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %q", b.cfg.GenerationProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", b.cfg.GenerationProvider, err)
	}
	return base, nil
}

func (b *builder) embedder() (Embedder, error) {
	var base Embedder
	var err error

	switch b.cfg.EmbeddingProvider {
	case "gemini":
		base, err = b.geminiProvider()
	case "openai":
		base, err = NewOpenAIProvider(openAIConfig(b.cfg))
	case "mock":
		return NewHashEmbedder(), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", b.cfg.EmbeddingProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s embedder: %w", b.cfg.EmbeddingProvider, err)
	}
	return base, nil
}

// Test doubles are returned as-is.
func wrapGenerator(g Generator, cfg config.AIConfig, log *logger.Logger) Generator {
	if _, ok := g.(*MockProvider); ok {
		return g
	}
	return WithRetry(WithLogging(g, log), DefaultRetryConfig(cfg.MaxRetries))
}

func wrapEmbedder(e Embedder, cfg config.AIConfig, log *logger.Logger) Embedder {
	if _, ok := e.(*HashEmbedder); ok {
		return e
	}
	return WithEmbedRetry(WithEmbedLogging(e, log), DefaultRetryConfig(cfg.MaxRetries))
}

func openAIConfig(cfg config.AIConfig) OpenAIConfig {
	return OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.OpenAIModel,
		EmbedModel: cfg.OpenAIEmbedModel,
		BaseURL:    cfg.OpenAIBaseURL,
	}
}
