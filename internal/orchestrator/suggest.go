package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/momentohub/MomentoBot/internal/assessment"
	"github.com/momentohub/MomentoBot/internal/genai"
)

// SuggestionThreshold is the minimum cosine similarity between the user's
// need and an assessment description for a confident suggestion. Below it the
// caller asks a clarifying question instead.
const SuggestionThreshold = 0.35

// Suggestion is a confident catalog match for a free-text need.
type Suggestion struct {
	Assessment  string  `json:"assessment"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Suggester resolves free-text needs to catalog assessments by embedding
// similarity against assessment descriptions. Description embeddings are
// computed once, lazily.
type Suggester struct {
	client  genai.ClientInterface
	catalog *assessment.Catalog

	mu         sync.Mutex
	embeddings map[string][]float64
}

// NewSuggester creates a suggester over the given catalog.
func NewSuggester(client genai.ClientInterface, catalog *assessment.Catalog) *Suggester {
	return &Suggester{client: client, catalog: catalog}
}

// Suggest returns the best-matching assessment for the query, or nil when no
// match clears the confidence threshold.
func (s *Suggester) Suggest(ctx context.Context, query string) (*Suggestion, error) {
	queryVec, err := s.client.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed suggestion query: %w", err)
	}

	embeddings, err := s.descriptionEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	var best *Suggestion
	for _, def := range s.catalog.Definitions() {
		vec, ok := embeddings[def.Name]
		if !ok {
			continue
		}
		sim := cosineSimilarity(queryVec, vec)
		if best == nil || sim > best.Confidence {
			best = &Suggestion{Assessment: def.Name, Description: def.Description, Confidence: sim}
		}
	}

	if best == nil || best.Confidence < SuggestionThreshold {
		slog.Debug("Suggester.Suggest: no confident match", "query", query)
		return nil, nil
	}
	slog.Debug("Suggester.Suggest: matched",
		"query", query, "assessment", best.Assessment, "confidence", best.Confidence)
	return best, nil
}

// descriptionEmbeddings returns the per-assessment description embeddings,
// computing them on first use.
func (s *Suggester) descriptionEmbeddings(ctx context.Context) (map[string][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.embeddings != nil {
		return s.embeddings, nil
	}

	embeddings := make(map[string][]float64)
	for _, def := range s.catalog.Definitions() {
		vec, err := s.client.Embed(ctx, def.Name+": "+def.Description)
		if err != nil {
			return nil, fmt.Errorf("failed to embed description for %s: %w", def.Name, err)
		}
		embeddings[def.Name] = vec
	}
	s.embeddings = embeddings
	return embeddings, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero vectors yield 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
