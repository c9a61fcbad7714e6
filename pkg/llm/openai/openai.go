// Package openai provides an llm.Client backed by any OpenAI-compatible
// chat completion API, including Groq's.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/askdocco/askdoc/pkg/llm"
)

const (
	defaultModel       = "llama3-8b-8192"
	defaultTemperature = 0.1
	defaultMaxTokens   = 1000
	defaultTimeout     = 60 * time.Second
)

// Config holds configuration for the chat client.
type Config struct {
	// APIKey authenticates against the provider.
	APIKey string

	// BaseURL overrides the API endpoint, e.g. "https://api.groq.com/openai/v1".
	// Empty means the OpenAI default.
	BaseURL string

	// Model is the chat model name. Empty selects a default.
	Model string

	// Temperature controls sampling. Zero selects a low default suited to
	// grounded question answering.
	Temperature float32

	// MaxTokens caps the response length. Zero selects a default.
	MaxTokens int

	// Timeout bounds a single completion call. Zero selects a default.
	Timeout time.Duration
}

// Client implements llm.Client over an OpenAI-compatible API.
type Client struct {
	client      *goopenai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewClient creates a new chat completion client.
func NewClient(c Config, logger *zap.Logger) (*Client, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}

	cfg := goopenai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: c.Timeout}

	logger.Info("chat completion client configured",
		zap.String("model", c.Model),
		zap.String("base_url", cfg.BaseURL),
	)

	return &Client{
		client:      goopenai.NewClientWithConfig(cfg),
		model:       c.Model,
		temperature: c.Temperature,
		maxTokens:   c.MaxTokens,
		logger:      logger,
	}, nil
}

// Complete returns the model's response text for the request.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	messages := []goopenai.ChatCompletionMessage{}
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", llm.ErrUnavailable)
	}

	c.logger.Debug("chat completion finished",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// Close releases any resources held by the client.
func (c *Client) Close() error {
	return nil
}

// classify maps provider errors onto the llm error taxonomy so callers can
// decide whether to retry.
func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", llm.ErrRateLimited, err)
		case apiErr.HTTPStatusCode == http.StatusUnauthorized,
			apiErr.HTTPStatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %v", llm.ErrRejected, err)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
		default:
			return fmt.Errorf("%w: %v", llm.ErrRejected, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}

	return fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
}

var _ llm.Client = (*Client)(nil)
