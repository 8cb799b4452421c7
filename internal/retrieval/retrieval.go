// Package retrieval implements vector similarity search over the two
// knowledge sources consulted on every conversational turn, plus the
// re-ranking of their merged results.
package retrieval

import (
	"context"

	"github.com/momentohub/MomentoBot/internal/models"
)

// Knowledge source names. Each source is an isolated vector table.
const (
	// SourceSupportKnowledge holds curated support and guidance articles.
	SourceSupportKnowledge = "support_knowledge"
	// SourceResolvedCases holds anonymized resolved conversation cases.
	SourceResolvedCases = "resolved_cases"
)

// DefaultTopK is the per-source result count when callers pass topK <= 0.
const DefaultTopK = 5

// EmbeddingDim is the dimensionality of stored embeddings
// (text-embedding-3-small).
const EmbeddingDim = 1536

// Searcher is the read side of a knowledge source.
type Searcher interface {
	// SearchSimilar returns the closest documents in the named source,
	// ordered by descending similarity. Similarity is 1 - cosine distance.
	SearchSimilar(ctx context.Context, embedding []float64, topK int, source string) ([]models.VectorResult, error)
}

// Indexer is the write side of a knowledge source.
type Indexer interface {
	// AddDocument stores a document with its precomputed embedding.
	AddDocument(ctx context.Context, source, text string, embedding []float64) error
}
