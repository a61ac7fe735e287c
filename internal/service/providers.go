package service

import (
	"encoding/json"
	"strings"
)

// StreamChunkParser is the interface for provider-specific chunk parsing
type StreamChunkParser interface {
	ParseChunk(data []byte) (*StreamChunk, error)
}

// deltaChunkParser parses OpenAI-format streaming chunks. Providers that
// expose model reasoning (NVIDIA-hosted DeepSeek) send it as reasoning_content.
type deltaChunkParser struct {
	reasoning bool
}

func (p *deltaChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var rawChunk struct {
		Choices []struct {
			Delta struct {
				Role             string  `json:"role,omitempty"`
				Content          string  `json:"content,omitempty"`
				ReasoningContent *string `json:"reasoning_content,omitempty"`
			} `json:"delta"`
			FinishReason string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(data, &rawChunk); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(rawChunk.Choices) > 0 {
		choice := rawChunk.Choices[0]
		chunk.Role = choice.Delta.Role
		chunk.Content = choice.Delta.Content
		if p.reasoning && choice.Delta.ReasoningContent != nil {
			chunk.ThinkingContent = *choice.Delta.ReasoningContent
		}
		chunk.Done = choice.FinishReason != ""
	}
	return chunk, nil
}

// providerFor picks a chunk parser from the API base URL
func providerFor(baseURL string) (string, StreamChunkParser) {
	switch {
	case strings.Contains(baseURL, "integrate.api.nvidia.com"):
		return "nvidia", &deltaChunkParser{reasoning: true}
	case strings.Contains(baseURL, "api.deepseek.com"):
		return "deepseek", &deltaChunkParser{reasoning: true}
	case strings.Contains(baseURL, "api.openai.com"):
		return "openai", &deltaChunkParser{}
	default:
		return "openai-compatible", &deltaChunkParser{}
	}
}
