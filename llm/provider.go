// Package llm hides the embedding and text generation vendors behind two
// small interfaces so the chat pipeline and indexer can be tested offline.
package llm

import "context"

// Request is a single-turn completion: a system prompt plus one user message.
type Request struct {
	System      string
	Message     string
	MaxTokens   int
	Temperature float64
}

// Generator produces a text completion. An empty completion is reported as
// *ErrEmptyResponse rather than "".
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	ModelID() string
}

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelID() string
}

// resolveModel maps a friendly model name to a provider model ID.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
