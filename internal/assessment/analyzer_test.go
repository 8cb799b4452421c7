package assessment

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"

	"github.com/momentohub/MomentoBot/internal/genai"
	"github.com/momentohub/MomentoBot/internal/models"
)

// mockGenAIClient returns canned completion content.
type mockGenAIClient struct {
	content string
	err     error
}

func (m *mockGenAIClient) GenerateWithMessages(_ context.Context, _ []openai.ChatCompletionMessageParamUnion) (string, error) {
	return m.content, m.err
}

func (m *mockGenAIClient) GenerateWithTools(_ context.Context, _ []openai.ChatCompletionMessageParamUnion, _ []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error) {
	return &genai.ToolCallResponse{Content: m.content}, m.err
}

func (m *mockGenAIClient) Embed(_ context.Context, _ string) ([]float64, error) {
	return nil, m.err
}

func testDefinition() models.AssessmentDefinition {
	catalog := NewCatalog()
	def, _ := catalog.Get("simulateProfit")
	return def
}

func TestLLMAnalyzerParsesPayload(t *testing.T) {
	client := &mockGenAIClient{
		content: `{"fields": {"monthly_revenue": 5000, "profit_margin": 30}, "insights": ["Separe as finanças."]}`,
	}
	a := NewLLMAnalyzer(client)

	fields, insights, err := a.Analyze(context.Background(), "u1", testDefinition(),
		map[string]string{"monthly_revenue": "5000"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields["monthly_revenue"] != 5000.0 {
		t.Errorf("expected numeric field, got %v", fields["monthly_revenue"])
	}
	if len(insights) != 1 {
		t.Errorf("expected 1 insight, got %d", len(insights))
	}
}

func TestLLMAnalyzerStripsCodeFence(t *testing.T) {
	client := &mockGenAIClient{
		content: "```json\n{\"fields\": {\"a\": 1}, \"insights\": []}\n```",
	}
	a := NewLLMAnalyzer(client)

	fields, insights, err := a.Analyze(context.Background(), "u1", testDefinition(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields["a"] != 1.0 {
		t.Errorf("expected field parsed through fence, got %v", fields)
	}
	if insights == nil {
		t.Error("expected non-nil insights")
	}
}

func TestLLMAnalyzerErrors(t *testing.T) {
	tests := []struct {
		name   string
		client *mockGenAIClient
	}{
		{"completion failure", &mockGenAIClient{err: errors.New("down")}},
		{"unparseable payload", &mockGenAIClient{content: "desculpe, não entendi"}},
		{"missing fields", &mockGenAIClient{content: `{"insights": []}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewLLMAnalyzer(tt.client)
			if _, _, err := a.Analyze(context.Background(), "u1", testDefinition(), nil, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRawFields(t *testing.T) {
	fields := rawFields(map[string]string{"k": "v"})
	if fields["k"] != "v" {
		t.Errorf("expected raw copy, got %v", fields)
	}
}
