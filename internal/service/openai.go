package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"medsearch/internal/config"
	"medsearch/internal/logger"
)

// OpenAIClient handles OpenAI-compatible chat and embedding API interactions
type OpenAIClient struct {
	config      *config.OpenAIConfig
	httpClient  *http.Client
	chunkParser StreamChunkParser // Provider-specific chunk parser
	log         logger.Logger

	chatExtraBody      map[string]any
	embeddingExtraBody map[string]any
}

// NewOpenAIClient creates a new OpenAI-compatible client with auto-detection of provider
func NewOpenAIClient(cfg *config.OpenAIConfig, log logger.Logger) *OpenAIClient {
	provider, parser := providerFor(cfg.APIBase)
	log = log.With(map[string]interface{}{"component": "openai", "provider": provider})

	c := &OpenAIClient{
		config:      cfg,
		chunkParser: parser,
		log:         log,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
	c.chatExtraBody = parseExtraBody(cfg.ChatExtraBody, "OPENAI_CHAT_EXTRA_BODY", log)
	c.embeddingExtraBody = parseExtraBody(cfg.EmbeddingExtraBody, "OPENAI_EMBEDDING_EXTRA_BODY", log)

	log.Debug("OpenAI client configured", map[string]interface{}{
		"api_base":        cfg.APIBase,
		"chat_model":      cfg.ChatModel,
		"embedding_model": cfg.EmbeddingModel,
		"enabled":         cfg.Enabled,
	})
	return c
}

func parseExtraBody(raw, name string, log logger.Logger) map[string]any {
	if raw == "" {
		return nil
	}
	var extra map[string]any
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		log.Warn("ignoring unparseable extra body", map[string]interface{}{"setting": name, "error": err})
		return nil
	}
	return extra
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	TopP           float64         `json:"top_p,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ExtraBody      map[string]any  `json:"extra_body,omitempty"` // For DeepSeek: {"chat_template_kwargs": {"thinking":True}}
}

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat specifies the format of the response
type ResponseFormat struct {
	Type string `json:"type"` // "json_object" or "text"
}

// ChatCompletionResponse represents the API response
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbeddingRequest represents an embedding request
type EmbeddingRequest struct {
	Model          string         `json:"model"`
	Input          []string       `json:"input"`
	Dimensions     int            `json:"dimensions,omitempty"`
	EncodingFormat string         `json:"encoding_format,omitempty"`
	TaskType       string         `json:"task_type,omitempty"`  // e.g. RETRIEVAL_QUERY
	ExtraBody      map[string]any `json:"extra_body,omitempty"` // For NVIDIA API: {"truncate": "NONE"}
}

// EmbeddingResponse represents the embedding API response
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *OpenAIClient) applyChatDefaults(req *ChatCompletionRequest) {
	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	if req.Temperature == 0 && c.config.ChatTemperature > 0 {
		req.Temperature = c.config.ChatTemperature
	}
	if req.TopP == 0 && c.config.ChatTopP > 0 {
		req.TopP = c.config.ChatTopP
	}
	if req.MaxTokens == 0 && c.config.ChatMaxTokens > 0 {
		req.MaxTokens = c.config.ChatMaxTokens
	}
	if req.ExtraBody == nil {
		req.ExtraBody = c.chatExtraBody
	}
}

func (c *OpenAIClient) newRequest(ctx context.Context, path string, payload interface{}) (*http.Request, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s%s", c.config.APIBase, path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))
	return httpReq, nil
}

// ChatCompletion performs a chat completion request
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if !c.config.Enabled {
		return nil, ErrAIDisabled
	}

	c.applyChatDefaults(&req)
	req.Stream = false

	httpReq, err := c.newRequest(ctx, "/chat/completions", req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	c.log.Debug("chat completion finished", map[string]interface{}{
		"model":  result.Model,
		"tokens": result.Usage.TotalTokens,
	})
	return &result, nil
}

// ChatCompletionStream performs a streaming chat completion request
func (c *OpenAIClient) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error {
	if !c.config.Enabled {
		return ErrAIDisabled
	}

	c.applyChatDefaults(&req)
	req.Stream = true

	httpReq, err := c.newRequest(ctx, "/chat/completions", req)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	// Process streaming response
	reader := bufio.NewReader(resp.Body)
	chunks := 0
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read stream: %w", err)
		}
		eof := err == io.EOF

		line = bytes.TrimSpace(line)
		// Parse SSE format: "data: {...}"
		if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))

			if bytes.Equal(data, []byte("[DONE]")) {
				break
			}

			chunk, perr := c.chunkParser.ParseChunk(data)
			if perr != nil {
				c.log.Warn("failed to parse stream chunk", map[string]interface{}{"error": perr})
			} else {
				chunks++
				if err := callback(chunk); err != nil {
					return fmt.Errorf("callback error: %w", err)
				}
			}
		}

		if eof {
			break
		}
	}

	c.log.Debug("chat stream finished", map[string]interface{}{"chunks": chunks})
	return nil
}

// Embed converts text into an embedding vector with a single request.
// Every failure wraps ErrEmbeddingFailure.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, ErrAIDisabled)
	}

	req := EmbeddingRequest{
		Model:          c.config.EmbeddingModel,
		Input:          []string{text},
		Dimensions:     c.config.EmbeddingDimensions,
		EncodingFormat: "float",
		TaskType:       c.config.EmbeddingTaskType,
		ExtraBody:      c.embeddingExtraBody,
	}

	httpReq, err := c.newRequest(ctx, "/embeddings", req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %v", ErrEmbeddingFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrEmbeddingFailure, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API request failed with status %d: %s", ErrEmbeddingFailure, resp.StatusCode, truncate(string(body), 300))
	}

	var result EmbeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %v", ErrEmbeddingFailure, err)
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("%w: response contained no embeddings", ErrEmbeddingFailure)
	}
	vec := result.Data[0].Embedding
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: response contained an empty vector", ErrEmbeddingFailure)
	}

	c.log.Debug("embedding created", map[string]interface{}{
		"model":       result.Model,
		"dimensions":  len(vec),
		"tokens":      result.Usage.TotalTokens,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return vec, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
