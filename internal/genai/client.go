package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/momentohub/MomentoBot/internal/models"
)

// Retry policy for OpenAI calls. Attempts are spaced by exponential backoff
// starting at backoffBase.
const (
	maxAttempts = 3
	backoffBase = 1 * time.Second
)

// Client wraps the OpenAI API for chat completions and embeddings.
type Client struct {
	client         openai.Client
	model          openai.ChatModel
	embeddingModel openai.EmbeddingModel

	// sleep is swappable for tests.
	sleep func(time.Duration)
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey         string
	Model          openai.ChatModel
	EmbeddingModel openai.EmbeddingModel
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey overrides the OPENAI_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel overrides the default chat model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

var _ ClientInterface = (*Client)(nil)

// NewClient initializes a new GenAI client. The API key defaults to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		APIKey:         os.Getenv("OPENAI_API_KEY"),
		Model:          openai.ChatModelGPT4oMini,
		EmbeddingModel: openai.EmbeddingModelTextEmbedding3Small,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	return &Client{
		client:         openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		sleep:          time.Sleep,
	}, nil
}

// GenerateWithMessages runs a plain chat completion over the full message
// context and returns the assistant content.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	var content string
	err := c.withRetry(ctx, "chat completion", func() error {
		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: messages,
			Model:    c.model,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices returned")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExternalService, err)
	}
	return content, nil
}

// GenerateWithTools runs a chat completion with tool definitions and returns
// the content plus any requested tool calls.
func (c *Client) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*ToolCallResponse, error) {
	var result *ToolCallResponse
	err := c.withRetry(ctx, "chat completion with tools", func() error {
		resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: messages,
			Model:    c.model,
			Tools:    tools,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices returned")
		}

		msg := resp.Choices[0].Message
		toolCalls := make([]models.ToolCall, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			toolCalls = append(toolCalls, models.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: models.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: json.RawMessage(tc.Function.Arguments),
				},
			})
		}
		result = &ToolCallResponse{Content: msg.Content, ToolCalls: toolCalls}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternalService, err)
	}
	return result, nil
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var embedding []float64
	err := c.withRetry(ctx, "embedding", func() error {
		resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
			Model: c.embeddingModel,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("no embedding returned")
		}
		embedding = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternalService, err)
	}
	return embedding, nil
}

// withRetry runs fn up to maxAttempts times with exponential backoff between
// attempts, stopping early when the context is done.
func (c *Client) withRetry(ctx context.Context, label string, fn func() error) error {
	var lastErr error
	delay := backoffBase
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		slog.Warn("Client.withRetry: attempt failed",
			"operation", label, "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)
		if attempt < maxAttempts {
			c.sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", label, maxAttempts, lastErr)
}
