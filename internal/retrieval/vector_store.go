package retrieval

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/momentohub/MomentoBot/internal/models"
)

// sourceTables maps the closed set of knowledge sources to their vec0 tables.
var sourceTables = map[string]string{
	SourceSupportKnowledge: "vec_support_knowledge",
	SourceResolvedCases:    "vec_resolved_cases",
}

// VectorStore is a SQLite-backed vector index holding both knowledge sources.
// Each source lives in its own vec0 virtual table so per-source searches
// never scan the other corpus.
type VectorStore struct {
	db *sql.DB
}

// Opts holds configuration for the vector store.
type Opts struct {
	DBPath string
}

// Option configures the vector store.
type Option func(*Opts)

// WithDBPath sets the SQLite database file path.
func WithDBPath(path string) Option {
	return func(o *Opts) {
		o.DBPath = path
	}
}

var _ Searcher = (*VectorStore)(nil)
var _ Indexer = (*VectorStore)(nil)

// NewVectorStore opens (creating if needed) the vector database and ensures
// both source tables exist.
func NewVectorStore(opts ...Option) (*VectorStore, error) {
	cfg := Opts{DBPath: "vectors.db"}
	for _, opt := range opts {
		opt(&cfg)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create vector db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping vector database: %v", models.ErrServiceUnavailable, err)
	}

	for source, table := range sourceTables {
		stmt := fmt.Sprintf(
			"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d], text TEXT)",
			table, EmbeddingDim,
		)
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create vector table for %s: %w", source, err)
		}
	}

	slog.Info("VectorStore initialized", "path", cfg.DBPath, "sources", len(sourceTables))
	return &VectorStore{db: db}, nil
}

// AddDocument stores a document with its precomputed embedding in the named
// source table.
func (s *VectorStore) AddDocument(ctx context.Context, source, text string, embedding []float64) error {
	table, ok := sourceTables[source]
	if !ok {
		return fmt.Errorf("unknown knowledge source: %s", source)
	}
	if len(embedding) != EmbeddingDim {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(embedding), EmbeddingDim)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (embedding, text) VALUES (?, ?)", table)
	if _, err := s.db.ExecContext(ctx, stmt, encodeEmbedding(embedding), text); err != nil {
		return fmt.Errorf("failed to store document in %s: %w", source, err)
	}
	return nil
}

// SearchSimilar returns the topK closest documents in the named source,
// ordered by descending similarity (1 - cosine distance).
func (s *VectorStore) SearchSimilar(ctx context.Context, embedding []float64, topK int, source string) ([]models.VectorResult, error) {
	table, ok := sourceTables[source]
	if !ok {
		return nil, fmt.Errorf("unknown knowledge source: %s", source)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	query := fmt.Sprintf(`
		SELECT text, vec_distance_cosine(embedding, ?) AS distance
		FROM %s
		ORDER BY distance ASC
		LIMIT ?`, table)

	rows, err := s.db.QueryContext(ctx, query, encodeEmbedding(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("vector search in %s failed: %w", source, err)
	}
	defer rows.Close()

	var results []models.VectorResult
	for rows.Next() {
		var text string
		var distance float64
		if err := rows.Scan(&text, &distance); err != nil {
			slog.Warn("VectorStore.SearchSimilar: failed to scan row", "error", err, "source", source)
			continue
		}
		results = append(results, models.VectorResult{
			Text:  text,
			Score: 1.0 - distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search iteration in %s failed: %w", source, err)
	}

	slog.Debug("VectorStore.SearchSimilar: search complete", "source", source, "topK", topK, "results", len(results))
	return results, nil
}

// Close closes the underlying database.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

// encodeEmbedding encodes a float64 vector as the little-endian float32 blob
// sqlite-vec expects.
func encodeEmbedding(embedding []float64) []byte {
	vec := make([]float32, len(embedding))
	for i, v := range embedding {
		vec[i] = float32(v)
	}
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		// Should never happen with bytes.Buffer.
		return nil
	}
	return buf.Bytes()
}
