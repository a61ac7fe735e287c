package service

import (
	"context"
)

// ChatClient is the interface for OpenAI-compatible chat providers
type ChatClient interface {
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)

	// ChatCompletionStream invokes callback once per parsed chunk
	ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error

	// IsEnabled returns whether the client is configured and ready
	IsEnabled() bool
}

// Embedder turns text into an embedding vector. Failures wrap ErrEmbeddingFailure.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	// Regular content (always present in streaming)
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string

	Role string

	// Whether this is the final chunk
	Done bool
}

// StreamCallback is called for each chunk in streaming mode
type StreamCallback func(chunk *StreamChunk) error

var (
	_ ChatClient = (*OpenAIClient)(nil)
	_ Embedder   = (*OpenAIClient)(nil)
	_ Embedder   = (*CachedEmbedder)(nil)
)
