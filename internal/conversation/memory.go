// Package conversation provides persisted per-user conversation memory with
// on-demand LLM summarization and the sanitized conversion of stored history
// into completion request messages.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/momentohub/MomentoBot/internal/cache"
	"github.com/momentohub/MomentoBot/internal/genai"
	"github.com/momentohub/MomentoBot/internal/models"
	"github.com/momentohub/MomentoBot/internal/store"
)

// DefaultHistoryLimit bounds how many recent messages feed one turn.
const DefaultHistoryLimit = 20

const summaryInstruction = `Resuma a conversa a seguir para dar contexto a um atendente.
Extraia: o assunto principal, o sentimento do usuário, perguntas ainda em aberto e um breve resumo narrativo.
Responda em um parágrafo curto em português.`

// Memory is the conversation memory for all users, backed by the persisted
// store with a best-effort snapshot cache for last-turn summaries.
type Memory struct {
	store     store.Store
	client    genai.ClientInterface
	snapshots cache.Cache
}

// NewMemory creates a conversation memory. The snapshot cache may be nil,
// disabling summary caching.
func NewMemory(st store.Store, client genai.ClientInterface, snapshots cache.Cache) *Memory {
	return &Memory{store: st, client: client, snapshots: snapshots}
}

// Load returns the most recent messages for a user in chronological order.
func (m *Memory) Load(userID string) (models.ConversationHistory, error) {
	history, err := m.store.GetConversationHistory(userID, DefaultHistoryLimit)
	if err != nil {
		return models.ConversationHistory{}, fmt.Errorf("failed to load conversation history: %w", err)
	}
	return history, nil
}

// Append persists messages to a user's history, stamping missing timestamps.
func (m *Memory) Append(userID string, msgs ...models.ConversationMessage) error {
	now := time.Now()
	for i := range msgs {
		if msgs[i].Timestamp.IsZero() {
			msgs[i].Timestamp = now
		}
	}
	if err := m.store.AddConversationMessages(userID, msgs...); err != nil {
		return fmt.Errorf("failed to append conversation messages: %w", err)
	}
	return nil
}

// Summarize produces a short digest of a user's recent history. It degrades
// to an empty string on any failure and serves cached snapshots while fresh.
func (m *Memory) Summarize(ctx context.Context, userID string) string {
	cacheKey := "snapshot:" + userID
	if m.snapshots != nil {
		if cached, ok := m.snapshots.Get(ctx, cacheKey); ok {
			return cached
		}
	}

	history, err := m.Load(userID)
	if err != nil || len(history.Messages) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, msg := range history.WithoutToolResults() {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
	}

	summary, err := m.client.GenerateWithMessages(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(summaryInstruction),
		openai.UserMessage(sb.String()),
	})
	if err != nil {
		slog.Warn("Memory.Summarize: summarization failed, degrading to empty", "error", err, "userID", userID)
		return ""
	}
	summary = strings.TrimSpace(summary)

	if m.snapshots != nil && summary != "" {
		m.snapshots.Set(ctx, cacheKey, summary, cache.SnapshotTTL)
	}
	return summary
}

// ToCompletionMessages converts stored history into completion request
// messages. Tool-result messages are stripped: a fresh request did not
// originate their tool calls, so they would be rejected by the API.
func ToCompletionMessages(history models.ConversationHistory) []openai.ChatCompletionMessageParamUnion {
	sanitized := history.WithoutToolResults()
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(sanitized))
	for _, msg := range sanitized {
		switch msg.Role {
		case models.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
