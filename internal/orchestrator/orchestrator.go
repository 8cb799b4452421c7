// Package orchestrator drives the end-to-end processing of one inbound turn:
// deduplication, the assessment fast path, vector retrieval, the two-pass
// completion protocol with tool dispatch, and persistence of the exchange.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"golang.org/x/sync/errgroup"

	"github.com/momentohub/MomentoBot/internal/assessment"
	"github.com/momentohub/MomentoBot/internal/cache"
	"github.com/momentohub/MomentoBot/internal/conversation"
	"github.com/momentohub/MomentoBot/internal/genai"
	"github.com/momentohub/MomentoBot/internal/models"
	"github.com/momentohub/MomentoBot/internal/retrieval"
	"github.com/momentohub/MomentoBot/internal/store"
)

// apologyReply is the best-effort fallback: the caller contract guarantees a
// textual reply for every inbound message.
const apologyReply = "Desculpe, tive um problema para processar sua mensagem agora. Pode tentar de novo em alguns instantes?"

// clarifyReply is sent when no assessment clears the suggestion threshold.
const clarifyReply = "Ainda não entendi bem o que você gostaria de avaliar no seu negócio. Pode me contar um pouco mais? Por exemplo: finanças, operação, clientes ou planejamento."

const systemPrompt = `Você é o assistente do MomentoHub, um consultor virtual para donos de pequenos negócios no Brasil.
Responda sempre em português, de forma curta e prática, como numa conversa de WhatsApp.
Use o contexto recuperado e o perfil do usuário quando ajudarem.
Quando o usuário quiser avaliar ou melhorar algo no negócio, use a ferramenta suggest_assessment.
Quando ele aceitar começar um diagnóstico, use start_assessment.
Quando ele responder uma pergunta de um diagnóstico em andamento, use process_assessment_answer.`

// MessageSender is the outbound side of the messaging channel.
type MessageSender interface {
	SendMessage(ctx context.Context, to, body string) error
	MarkRead(ctx context.Context, messageID, from string) error
}

// Orchestrator wires the turn pipeline together.
type Orchestrator struct {
	engine     *assessment.Engine
	memory     *conversation.Memory
	searcher   retrieval.Searcher
	client     genai.ClientInterface
	dedup      *cache.Dedup
	queryCache cache.Cache
	suggester  *Suggester
	store      store.Store
	sender     MessageSender
	topK       int
}

// Opts holds orchestrator configuration.
type Opts struct {
	TopK int
}

// Option configures the orchestrator.
type Option func(*Opts)

// WithTopK sets the per-source retrieval depth.
func WithTopK(k int) Option {
	return func(o *Opts) { o.TopK = k }
}

// NewOrchestrator creates the turn orchestrator.
func NewOrchestrator(
	engine *assessment.Engine,
	memory *conversation.Memory,
	searcher retrieval.Searcher,
	client genai.ClientInterface,
	dedup *cache.Dedup,
	queryCache cache.Cache,
	suggester *Suggester,
	st store.Store,
	sender MessageSender,
	opts ...Option,
) *Orchestrator {
	cfg := Opts{TopK: retrieval.DefaultTopK}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Orchestrator{
		engine:     engine,
		memory:     memory,
		searcher:   searcher,
		client:     client,
		dedup:      dedup,
		queryCache: queryCache,
		suggester:  suggester,
		store:      st,
		sender:     sender,
		topK:       cfg.TopK,
	}
}

// HandleInboundMessage processes one inbound message end-to-end. It is
// idempotent per message id within the dedup window: redelivered messages
// trigger no second send or read receipt.
func (o *Orchestrator) HandleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	if strings.TrimSpace(msg.Body) == "" {
		slog.Debug("Orchestrator.HandleInboundMessage: empty body, ignoring", "from", msg.From)
		return nil
	}
	if o.dedup.Seen(ctx, msg.MessageID) {
		slog.Debug("Orchestrator.HandleInboundMessage: duplicate message, ignoring",
			"messageID", msg.MessageID, "from", msg.From)
		return nil
	}
	o.dedup.MarkSeen(ctx, msg.MessageID)

	if err := o.sender.MarkRead(ctx, msg.MessageID, msg.From); err != nil {
		slog.Warn("Orchestrator.HandleInboundMessage: mark read failed", "error", err, "messageID", msg.MessageID)
	}

	result := o.ProcessTurn(ctx, msg.From, msg.Body)
	if err := o.sender.SendMessage(ctx, msg.From, result.Answer); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// ProcessTurn runs the turn pipeline for one user query and always returns a
// textual answer; failures degrade to a localized apology.
func (o *Orchestrator) ProcessTurn(ctx context.Context, userID, query string) *models.TurnResult {
	profile := o.touchProfile(userID)

	// Fast path: an open assessment step awaiting an answer bypasses
	// retrieval and the completion protocol entirely.
	if profile != nil && profile.Progress.Active() {
		if result, ok := o.answerFastPath(ctx, profile, query); ok {
			return result
		}
	}

	matches := o.retrieve(ctx, query)
	answer := o.completeTurn(ctx, userID, profile, query, matches)

	o.persistTurn(userID, query, answer)
	return &models.TurnResult{Matches: matches, Answer: answer}
}

// answerFastPath records the query as the answer to the user's current step.
// Returns ok=false to fall through to the full pipeline when the fast path
// cannot service the turn.
func (o *Orchestrator) answerFastPath(ctx context.Context, profile *models.UserProfile, query string) (*models.TurnResult, bool) {
	def, ok := o.engine.Catalog().Get(profile.Progress.CurrentAssessment)
	if !ok {
		return nil, false
	}
	stepIndex := profile.Progress.StepIndex
	if stepIndex >= len(def.Steps) {
		return nil, false
	}

	res, err := o.engine.Answer(ctx, def.Name, profile.ID, query, def.Steps[stepIndex].Key)
	if err != nil {
		slog.Warn("Orchestrator.answerFastPath: answer failed, falling back to full pipeline",
			"error", err, "userID", profile.ID, "assessment", def.Name)
		return nil, false
	}

	answer := phraseResult(res)
	o.persistTurn(profile.ID, query, answer)
	return &models.TurnResult{Answer: answer}, true
}

// retrieve embeds the query and searches both knowledge sources
// concurrently, merging by descending similarity. Whole-query results are
// cached; every failure degrades to no context.
func (o *Orchestrator) retrieve(ctx context.Context, query string) []models.VectorResult {
	cacheKey := fmt.Sprintf("query:%d:%s", o.topK, query)
	if o.queryCache != nil {
		if cached, ok := o.queryCache.Get(ctx, cacheKey); ok {
			var matches []models.VectorResult
			if err := json.Unmarshal([]byte(cached), &matches); err == nil {
				return matches
			}
		}
	}

	vector, err := o.client.Embed(ctx, query)
	if err != nil {
		slog.Warn("Orchestrator.retrieve: embedding failed, skipping retrieval", "error", err)
		return nil
	}

	var support, cases []models.VectorResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		support, err = o.searcher.SearchSimilar(gctx, vector, o.topK, retrieval.SourceSupportKnowledge)
		return err
	})
	g.Go(func() error {
		var err error
		cases, err = o.searcher.SearchSimilar(gctx, vector, o.topK, retrieval.SourceResolvedCases)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Warn("Orchestrator.retrieve: vector search failed, continuing without context", "error", err)
		return nil
	}

	matches := retrieval.MergeRank(o.topK, support, cases)

	if o.queryCache != nil && len(matches) > 0 {
		if encoded, err := json.Marshal(matches); err == nil {
			o.queryCache.Set(ctx, cacheKey, string(encoded), cache.QueryTTL)
		}
	}
	return matches
}

// completeTurn runs the two-pass completion protocol and returns the final
// answer text.
func (o *Orchestrator) completeTurn(ctx context.Context, userID string, profile *models.UserProfile, query string, matches []models.VectorResult) string {
	messages := o.buildMessages(ctx, userID, profile, query, matches)

	first, err := o.client.GenerateWithTools(ctx, messages, toolDefinitions())
	if err != nil {
		slog.Error("Orchestrator.completeTurn: first completion failed", "error", err, "userID", userID)
		return apologyReply
	}

	if !first.HasToolCalls() {
		if answer := strings.TrimSpace(first.Content); answer != "" {
			return answer
		}
		return apologyReply
	}

	// Only the first requested action is serviced; extras receive a
	// synthetic not-executed result so the model can acknowledge them.
	dispatched := o.dispatchAction(ctx, userID, first.ToolCalls[0])

	second, err := o.narrate(ctx, messages, first, dispatched)
	if err != nil || strings.TrimSpace(second) == "" {
		slog.Error("Orchestrator.completeTurn: second completion failed, using deterministic phrasing",
			"error", err, "userID", userID)
		return dispatched.fallbackAnswer()
	}
	return strings.TrimSpace(second)
}

// buildMessages assembles the first completion request: system instructions,
// the context block, sanitized prior history, and the current query.
func (o *Orchestrator) buildMessages(ctx context.Context, userID string, profile *models.UserProfile, query string, matches []models.VectorResult) []openai.ChatCompletionMessageParamUnion {
	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)}

	var ctxBlock strings.Builder
	if summary := o.memory.Summarize(ctx, userID); summary != "" {
		fmt.Fprintf(&ctxBlock, "Resumo da conversa até agora: %s\n\n", summary)
	}
	if len(matches) > 0 {
		ctxBlock.WriteString("Contexto recuperado:\n")
		for _, match := range matches {
			fmt.Fprintf(&ctxBlock, "- %s\n", match.Text)
		}
		ctxBlock.WriteString("\n")
	}
	if profile != nil && len(profile.Profile) > 0 {
		if encoded, err := json.Marshal(profile.Profile); err == nil {
			fmt.Fprintf(&ctxBlock, "Perfil do negócio: %s\n", encoded)
		}
		if profile.Scoring != nil {
			if encoded, err := json.Marshal(profile.Scoring); err == nil {
				fmt.Fprintf(&ctxBlock, "Última avaliação: %s\n", encoded)
			}
		}
	}
	if ctxBlock.Len() > 0 {
		messages = append(messages, openai.SystemMessage(ctxBlock.String()))
	}

	if history, err := o.memory.Load(userID); err == nil {
		messages = append(messages, conversation.ToCompletionMessages(history)...)
	}
	return append(messages, openai.UserMessage(query))
}

// narrate issues the second completion: the first assistant message with its
// tool calls, the serviced action's result, and not-executed results for any
// extra requested calls.
func (o *Orchestrator) narrate(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, first *genai.ToolCallResponse, dispatched *dispatchOutcome) (string, error) {
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	for _, tc := range first.ToolCalls {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Function.Name,
				Arguments: string(tc.Function.Arguments),
			},
		})
	}
	assistantMsg := openai.ChatCompletionAssistantMessageParam{
		Content: openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: param.NewOpt(first.Content),
		},
		ToolCalls: toolCalls,
	}
	messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistantMsg})

	messages = append(messages, openai.ToolMessage(dispatched.resultJSON, first.ToolCalls[0].ID))
	for _, extra := range first.ToolCalls[1:] {
		messages = append(messages, openai.ToolMessage(
			`{"status":"not_executed","reason":"apenas uma ação é executada por mensagem"}`, extra.ID))
	}

	return o.client.GenerateWithMessages(ctx, messages)
}

// dispatchOutcome carries the synthetic tool result plus a deterministic
// phrasing used when the narration pass fails.
type dispatchOutcome struct {
	resultJSON string
	fallback   string
}

func (d *dispatchOutcome) fallbackAnswer() string {
	if d != nil && d.fallback != "" {
		return d.fallback
	}
	return apologyReply
}

// dispatchAction executes one requested backend action. Failures never
// propagate: they become synthetic error results the narration can phrase.
func (o *Orchestrator) dispatchAction(ctx context.Context, userID string, call models.ToolCall) *dispatchOutcome {
	action, err := models.ParseToolAction(call.Function)
	if err != nil {
		slog.Warn("Orchestrator.dispatchAction: unparseable tool call", "error", err, "userID", userID)
		return errorOutcome(err)
	}

	switch {
	case action.Suggest != nil:
		suggestion, err := o.suggester.Suggest(ctx, action.Suggest.Query)
		if err != nil {
			slog.Error("Orchestrator.dispatchAction: suggestion lookup failed", "error", err, "userID", userID)
			return errorOutcome(err)
		}
		if suggestion == nil {
			return &dispatchOutcome{
				resultJSON: `{"status":"no_match","instruction":"faça uma pergunta curta para entender melhor a necessidade"}`,
				fallback:   clarifyReply,
			}
		}
		return jsonOutcome(suggestion, fmt.Sprintf(
			"Acho que o diagnóstico %q pode te ajudar: %s. Quer começar?",
			suggestion.Assessment, suggestion.Description))

	case action.Start != nil:
		res, err := o.engine.Start(ctx, action.Start.Assessment, userID)
		if err != nil {
			slog.Warn("Orchestrator.dispatchAction: start failed", "error", err, "userID", userID)
			return errorOutcome(err)
		}
		return jsonOutcome(res, phraseResult(res))

	case action.Answer != nil:
		res, err := o.engine.Answer(ctx, action.Answer.Assessment, userID, action.Answer.Answer, action.Answer.StepKey)
		if err != nil {
			slog.Warn("Orchestrator.dispatchAction: answer failed", "error", err, "userID", userID)
			return errorOutcome(err)
		}
		return jsonOutcome(res, phraseResult(res))
	}
	return errorOutcome(fmt.Errorf("empty tool action"))
}

func jsonOutcome(result any, fallback string) *dispatchOutcome {
	encoded, err := json.Marshal(result)
	if err != nil {
		return errorOutcome(err)
	}
	return &dispatchOutcome{resultJSON: string(encoded), fallback: fallback}
}

func errorOutcome(err error) *dispatchOutcome {
	encoded, _ := json.Marshal(map[string]string{"status": "error", "message": err.Error()})
	return &dispatchOutcome{resultJSON: string(encoded), fallback: apologyReply}
}

// phraseResult renders a deterministic reply for a state machine outcome.
func phraseResult(res *models.AssessmentResult) string {
	switch res.Status {
	case models.AssessmentStatusStarted, models.AssessmentStatusConfirmStart:
		if res.CurrentStep != nil {
			return "Vamos lá! " + res.CurrentStep.Prompt
		}
	case models.AssessmentStatusInProgress:
		if res.NextStep != nil {
			return "Anotado! " + res.NextStep.Prompt
		}
	case models.AssessmentStatusCompleted:
		var sb strings.Builder
		sb.WriteString("Diagnóstico concluído! Obrigado pelas respostas.")
		for _, insight := range res.Insights {
			sb.WriteString("\n• ")
			sb.WriteString(insight)
		}
		return sb.String()
	}
	return apologyReply
}

// touchProfile loads or lazily creates the user profile and bumps its last
// activity, keeping the user classified as active.
func (o *Orchestrator) touchProfile(userID string) *models.UserProfile {
	profile, err := o.store.GetUserProfile(userID)
	if err != nil {
		slog.Error("Orchestrator.touchProfile: load failed", "error", err, "userID", userID)
		return nil
	}
	if profile == nil {
		profile = models.NewUserProfile(userID)
	}
	profile.Status = models.UserStatusActive
	profile.UpdatedAt = time.Now()
	if err := o.store.SaveUserProfile(*profile); err != nil {
		slog.Error("Orchestrator.touchProfile: save failed", "error", err, "userID", userID)
	}
	return profile
}

// persistTurn appends the user query and final answer to conversation memory.
func (o *Orchestrator) persistTurn(userID, query, answer string) {
	err := o.memory.Append(userID,
		models.ConversationMessage{Role: models.RoleUser, Content: query},
		models.ConversationMessage{Role: models.RoleAssistant, Content: answer},
	)
	if err != nil {
		slog.Error("Orchestrator.persistTurn: failed to persist exchange", "error", err, "userID", userID)
	}
}
