// Package genai provides GenAI-enhanced operations using OpenAI API.
package genai

import (
	"context"

	"github.com/openai/openai-go"

	"github.com/momentohub/MomentoBot/internal/models"
)

// ToolCallResponse is the result of a completion that may request tool calls.
// Content may be empty when the model chose to call tools.
type ToolCallResponse struct {
	Content   string
	ToolCalls []models.ToolCall
}

// HasToolCalls reports whether the model requested at least one tool call.
func (r *ToolCallResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// ClientInterface defines the GenAI operations used by the conversation
// pipeline. It exists so tests can substitute a mock client.
type ClientInterface interface {
	// GenerateWithMessages runs a plain chat completion over the full
	// message context and returns the assistant content.
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)

	// GenerateWithTools runs a chat completion with tool definitions and
	// returns the content plus any requested tool calls.
	GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*ToolCallResponse, error)

	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float64, error)
}
