// Package store provides storage backends for MomentoBot.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/momentohub/MomentoBot/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore implements Store on top of PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, fmt.Errorf("%w: %v", models.ErrServiceUnavailable, err)
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// GetUserProfile retrieves a user profile by id, or nil if absent.
func (s *PostgresStore) GetUserProfile(id string) (*models.UserProfile, error) {
	row := s.db.QueryRow(
		`SELECT id, status, profile, progress, scoring, created_at, updated_at
		 FROM user_profiles WHERE id = $1`, id)
	return scanUserProfile(row)
}

// SaveUserProfile upserts a user profile document.
func (s *PostgresStore) SaveUserProfile(profile models.UserProfile) error {
	profileJSON, progressJSON, scoringJSON, err := marshalProfileColumns(profile)
	if err != nil {
		slog.Error("PostgresStore SaveUserProfile marshal failed", "error", err, "userID", profile.ID)
		return err
	}
	profile.UpdatedAt = time.Now()
	_, err = s.db.Exec(
		`INSERT INTO user_profiles (id, status, profile, progress, scoring, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status, profile = EXCLUDED.profile,
		   progress = EXCLUDED.progress, scoring = EXCLUDED.scoring,
		   updated_at = EXCLUDED.updated_at`,
		profile.ID, profile.Status, profileJSON, progressJSON, scoringJSON,
		profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveUserProfile failed", "error", err, "userID", profile.ID)
		return fmt.Errorf("failed to save user profile %s: %w", profile.ID, err)
	}
	slog.Debug("PostgresStore SaveUserProfile succeeded", "userID", profile.ID)
	return nil
}

// ListUsersIdleSince returns active users whose last write predates cutoff.
func (s *PostgresStore) ListUsersIdleSince(cutoff time.Time) ([]models.UserProfile, error) {
	rows, err := s.db.Query(
		`SELECT id, status, profile, progress, scoring, created_at, updated_at
		 FROM user_profiles WHERE status = $1 AND updated_at < $2`,
		models.UserStatusActive, cutoff)
	if err != nil {
		slog.Error("PostgresStore ListUsersIdleSince query failed", "error", err)
		return nil, fmt.Errorf("failed to query idle users: %w", err)
	}
	defer rows.Close()
	return collectUserProfiles(rows)
}

// AddConversationMessages appends messages to a user's history.
func (s *PostgresStore) AddConversationMessages(userID string, msgs ...models.ConversationMessage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, m := range msgs {
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now()
		}
		if _, err := tx.Exec(
			`INSERT INTO conversation_messages (user_id, role, content, tool_call_id, tool_name, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			userID, m.Role, m.Content, nilIfEmpty(m.ToolCallID), nilIfEmpty(m.ToolName), m.Timestamp); err != nil {
			tx.Rollback()
			slog.Error("PostgresStore AddConversationMessages failed", "error", err, "userID", userID)
			return fmt.Errorf("failed to insert conversation message: %w", err)
		}
	}
	return tx.Commit()
}

// GetConversationHistory loads a user's history in chronological order.
func (s *PostgresStore) GetConversationHistory(userID string, limit int) (models.ConversationHistory, error) {
	query := `SELECT role, content, tool_call_id, tool_name, created_at
		FROM conversation_messages WHERE user_id = $1 ORDER BY id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore GetConversationHistory query failed", "error", err, "userID", userID)
		return models.ConversationHistory{}, fmt.Errorf("failed to query conversation history: %w", err)
	}
	defer rows.Close()
	return collectHistory(rows)
}

// ClearConversationHistory removes a user's stored chat history.
func (s *PostgresStore) ClearConversationHistory(userID string) error {
	_, err := s.db.Exec(`DELETE FROM conversation_messages WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore ClearConversationHistory failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to clear conversation history: %w", err)
	}
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
