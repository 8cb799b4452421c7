package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"

	"github.com/momentohub/MomentoBot/internal/cache"
	"github.com/momentohub/MomentoBot/internal/genai"
	"github.com/momentohub/MomentoBot/internal/models"
)

// memStore implements the store methods Memory uses.
type memStore struct {
	history map[string][]models.ConversationMessage
	loadErr error
}

func newMemStore() *memStore {
	return &memStore{history: make(map[string][]models.ConversationMessage)}
}

func (m *memStore) GetUserProfile(id string) (*models.UserProfile, error) { return nil, nil }
func (m *memStore) SaveUserProfile(profile models.UserProfile) error      { return nil }
func (m *memStore) ListUsersIdleSince(cutoff time.Time) ([]models.UserProfile, error) {
	return nil, nil
}

func (m *memStore) AddConversationMessages(userID string, msgs ...models.ConversationMessage) error {
	m.history[userID] = append(m.history[userID], msgs...)
	return nil
}

func (m *memStore) GetConversationHistory(userID string, limit int) (models.ConversationHistory, error) {
	if m.loadErr != nil {
		return models.ConversationHistory{}, m.loadErr
	}
	msgs := m.history[userID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return models.ConversationHistory{Messages: msgs}, nil
}

func (m *memStore) ClearConversationHistory(userID string) error {
	delete(m.history, userID)
	return nil
}

func (m *memStore) Close() error { return nil }

// stubClient returns canned summaries and counts calls.
type stubClient struct {
	content string
	err     error
	calls   int
}

func (s *stubClient) GenerateWithMessages(_ context.Context, _ []openai.ChatCompletionMessageParamUnion) (string, error) {
	s.calls++
	return s.content, s.err
}

func (s *stubClient) GenerateWithTools(_ context.Context, _ []openai.ChatCompletionMessageParamUnion, _ []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error) {
	return nil, s.err
}

func (s *stubClient) Embed(_ context.Context, _ string) ([]float64, error) {
	return nil, s.err
}

func TestAppendAndLoad(t *testing.T) {
	st := newMemStore()
	m := NewMemory(st, &stubClient{}, nil)

	if err := m.Append("u1",
		models.ConversationMessage{Role: models.RoleUser, Content: "oi"},
		models.ConversationMessage{Role: models.RoleAssistant, Content: "olá!"},
	); err != nil {
		t.Fatalf("append: %v", err)
	}

	history, err := m.Load("u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(history.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history.Messages))
	}
	if history.Messages[0].Timestamp.IsZero() {
		t.Error("expected missing timestamps stamped on append")
	}
}

func TestSummarizeDegradesToEmpty(t *testing.T) {
	st := newMemStore()
	st.history["u1"] = []models.ConversationMessage{{Role: models.RoleUser, Content: "oi"}}
	m := NewMemory(st, &stubClient{err: errors.New("llm down")}, nil)

	if got := m.Summarize(context.Background(), "u1"); got != "" {
		t.Errorf("expected empty summary on failure, got %q", got)
	}
}

func TestSummarizeEmptyHistory(t *testing.T) {
	m := NewMemory(newMemStore(), &stubClient{content: "should not be called"}, nil)
	if got := m.Summarize(context.Background(), "u1"); got != "" {
		t.Errorf("expected empty summary with no history, got %q", got)
	}
}

func TestSummarizeUsesSnapshotCache(t *testing.T) {
	st := newMemStore()
	st.history["u1"] = []models.ConversationMessage{{Role: models.RoleUser, Content: "oi"}}
	client := &stubClient{content: "usuário pergunta sobre lucro"}
	m := NewMemory(st, client, cache.NewMemoryCache(10))

	first := m.Summarize(context.Background(), "u1")
	second := m.Summarize(context.Background(), "u1")
	if first != second || first == "" {
		t.Errorf("expected identical cached summary, got %q / %q", first, second)
	}
	if client.calls != 1 {
		t.Errorf("expected single LLM call, got %d", client.calls)
	}
}

func TestToCompletionMessagesStripsToolResults(t *testing.T) {
	history := models.ConversationHistory{Messages: []models.ConversationMessage{
		{Role: models.RoleUser, Content: "simular lucro"},
		{Role: models.RoleAssistant, Content: "vamos começar"},
		{Role: models.RoleToolResult, Content: "{\"status\":\"started\"}", ToolCallID: "tc1"},
		{Role: models.RoleUser, Content: "5000"},
	}}

	msgs := ToCompletionMessages(history)
	if len(msgs) != 3 {
		t.Fatalf("expected tool message stripped, got %d messages", len(msgs))
	}
}
