package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/momentohub/MomentoBot/internal/genai"
	"github.com/momentohub/MomentoBot/internal/models"
)

// Analyzer transforms the raw answers of a completed assessment into typed
// profile fields plus textual insights. Implementations may call an LLM;
// failures are tolerated by the engine, which falls back to the raw answers.
type Analyzer interface {
	Analyze(ctx context.Context, userID string, def models.AssessmentDefinition, answers map[string]string, profile map[string]map[string]any) (map[string]any, []string, error)
}

const analysisSystemPrompt = `Você é um analista de pequenos negócios. Receberá as respostas brutas de um questionário de diagnóstico.
Normalize cada resposta: números viram valores numéricos, respostas sim/não viram booleanos, categorias ficam em minúsculas.
Inclua campos derivados quando forem óbvios (por exemplo, profit_margin em porcentagem a partir de faturamento e custos).
Gere de duas a três frases curtas de orientação prática em português no campo insights.
Responda APENAS com JSON válido no formato: {"fields": {...}, "insights": ["...", "..."]}`

// LLMAnalyzer delegates analysis to a chat completion and parses the JSON it
// returns.
type LLMAnalyzer struct {
	client genai.ClientInterface
}

// NewLLMAnalyzer creates an analyzer backed by the given GenAI client.
func NewLLMAnalyzer(client genai.ClientInterface) *LLMAnalyzer {
	return &LLMAnalyzer{client: client}
}

var _ Analyzer = (*LLMAnalyzer)(nil)

type analysisPayload struct {
	Fields   map[string]any `json:"fields"`
	Insights []string       `json:"insights"`
}

// Analyze runs the completion and parses its JSON payload.
func (a *LLMAnalyzer) Analyze(ctx context.Context, userID string, def models.AssessmentDefinition, answers map[string]string, profile map[string]map[string]any) (map[string]any, []string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Diagnóstico: %s (%s)\n", def.Name, def.Description)
	for _, step := range def.Steps {
		fmt.Fprintf(&sb, "Pergunta (%s): %s\nResposta: %s\n", step.Key, step.Prompt, answers[step.Key])
	}

	content, err := a.client.GenerateWithMessages(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(analysisSystemPrompt),
		openai.UserMessage(sb.String()),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("analysis completion failed: %w", err)
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &payload); err != nil {
		return nil, nil, fmt.Errorf("analysis returned unparseable payload: %w", err)
	}
	if payload.Fields == nil {
		return nil, nil, fmt.Errorf("analysis returned no fields")
	}
	if payload.Insights == nil {
		payload.Insights = []string{}
	}

	slog.Debug("LLMAnalyzer.Analyze: analysis complete",
		"userID", userID, "assessment", def.Name, "fields", len(payload.Fields), "insights", len(payload.Insights))
	return payload.Fields, payload.Insights, nil
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// rawFields converts raw answers into a profile section as-is. Used when
// analysis fails so collected answers are never dropped.
func rawFields(answers map[string]string) map[string]any {
	fields := make(map[string]any, len(answers))
	for k, v := range answers {
		fields[k] = v
	}
	return fields
}
