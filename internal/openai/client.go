// Package openai wraps an OpenAI-compatible API for embeddings and text
// generation. A custom base URL makes Together-style providers usable.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the model used for generating embeddings
	DefaultEmbeddingModel = "togethercomputer/m2-bert-80M-32k-retrieval"
	// DefaultEmbeddingDimensions is the embedding width of the default model
	DefaultEmbeddingDimensions = 768
	// DefaultChatModel is the model used for chat generation
	DefaultChatModel = "meta-llama/Llama-3.3-70B-Instruct-Turbo"

	defaultMaxAttempts    = 3
	defaultAttemptTimeout = 30 * time.Second
	retryBaseWait         = 500 * time.Millisecond
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has the wrong width
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when the provider API key is not set
	ErrNoAPIKey = errors.New("BEACON_LLM_API_KEY environment variable not set")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionAPI defines the interface for text generation
type CompletionAPI interface {
	CreateCompletion(ctx context.Context, model, prompt string, temperature float32, maxTokens int) (string, error)
}

// ModelParams carries per-request generation parameters.
type ModelParams struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client wraps the provider API with dimension validation and bounded retries
type Client struct {
	embeddings     EmbeddingAPI
	completions    CompletionAPI
	dimensions     int
	chatModel      string
	maxAttempts    int
	attemptTimeout time.Duration
}

// APIAdapter implements EmbeddingAPI and CompletionAPI on go-openai
type APIAdapter struct {
	client         *openai.Client
	embeddingModel string
}

// NewAPIAdapter creates an adapter for the given key, base URL, and model.
// An empty baseURL targets the default OpenAI endpoint.
func NewAPIAdapter(apiKey, baseURL, embeddingModel string) *APIAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &APIAdapter{
		client:         openai.NewClientWithConfig(cfg),
		embeddingModel: embeddingModel,
	}
}

// CreateEmbeddings calls the provider API to embed a batch of texts.
// The returned slice is ordered by input position.
func (a *APIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(a.embeddingModel),
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d entries for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// CreateCompletion calls the provider chat API with a single user prompt.
func (a *APIAdapter) CreateCompletion(ctx context.Context, model, prompt string, temperature float32, maxTokens int) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Config holds client configuration.
type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
	ChatModel           string
	MaxAttempts         int
	AttemptTimeout      time.Duration
}

// NewClient creates a new client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	attemptTimeout := cfg.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = defaultAttemptTimeout
	}
	adapter := NewAPIAdapter(cfg.APIKey, cfg.BaseURL, cfg.EmbeddingModel)
	return &Client{
		embeddings:     adapter,
		completions:    adapter,
		dimensions:     dimensions,
		chatModel:      chatModel,
		maxAttempts:    maxAttempts,
		attemptTimeout: attemptTimeout,
	}
}

// NewClientFromEnv creates a client from BEACON_LLM_API_KEY.
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("BEACON_LLM_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Dimensions returns the expected embedding width.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// GenerateEmbedding generates an embedding for the given text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	batch, err := c.GenerateEmbeddingBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return batch[0], nil
}

// GenerateEmbeddingBatch embeds texts in one provider call, order- and
// length-preserving. Transient provider errors are retried with bounded
// attempts; the terminal error is returned unchanged to the caller.
func (c *Client) GenerateEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	var vectors [][]float32
	err := c.withRetries(ctx, func(attemptCtx context.Context) error {
		var callErr error
		vectors, callErr = c.embeddings.CreateEmbeddings(attemptCtx, texts)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	for i, v := range vectors {
		if len(v) != c.dimensions {
			return nil, fmt.Errorf("input %d: %w (got %d, want %d)", i, ErrWrongDimensions, len(v), c.dimensions)
		}
	}
	return vectors, nil
}

// GenerateText generates a completion for the prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string, params ModelParams) (string, error) {
	if prompt == "" {
		return "", ErrEmptyText
	}
	model := params.Model
	if model == "" {
		model = c.chatModel
	}

	var text string
	err := c.withRetries(ctx, func(attemptCtx context.Context) error {
		var callErr error
		text, callErr = c.completions.CreateCompletion(attemptCtx, model, prompt, params.Temperature, params.MaxTokens)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	return text, nil
}

func (c *Client) withRetries(ctx context.Context, call func(context.Context) error) error {
	var lastErr error
	wait := retryBaseWait
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		lastErr = call(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt < c.maxAttempts-1 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(wait):
			}
			wait *= 2
		}
	}
	return lastErr
}
