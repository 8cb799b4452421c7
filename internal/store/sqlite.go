// Package store provides storage backends for MomentoBot.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/momentohub/MomentoBot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore implements Store on top of a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, fmt.Errorf("%w: %v", models.ErrServiceUnavailable, err)
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// GetUserProfile retrieves a user profile by id, or nil if absent.
func (s *SQLiteStore) GetUserProfile(id string) (*models.UserProfile, error) {
	row := s.db.QueryRow(
		`SELECT id, status, profile, progress, scoring, created_at, updated_at
		 FROM user_profiles WHERE id = ?`, id)
	return scanUserProfile(row)
}

// SaveUserProfile upserts a user profile document.
func (s *SQLiteStore) SaveUserProfile(profile models.UserProfile) error {
	profileJSON, progressJSON, scoringJSON, err := marshalProfileColumns(profile)
	if err != nil {
		slog.Error("SQLiteStore SaveUserProfile marshal failed", "error", err, "userID", profile.ID)
		return err
	}
	profile.UpdatedAt = time.Now()
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO user_profiles (id, status, profile, progress, scoring, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profile.ID, profile.Status, profileJSON, progressJSON, scoringJSON,
		profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveUserProfile failed", "error", err, "userID", profile.ID)
		return fmt.Errorf("failed to save user profile %s: %w", profile.ID, err)
	}
	slog.Debug("SQLiteStore SaveUserProfile succeeded", "userID", profile.ID)
	return nil
}

// ListUsersIdleSince returns active users whose last write predates cutoff.
func (s *SQLiteStore) ListUsersIdleSince(cutoff time.Time) ([]models.UserProfile, error) {
	rows, err := s.db.Query(
		`SELECT id, status, profile, progress, scoring, created_at, updated_at
		 FROM user_profiles WHERE status = ? AND updated_at < ?`,
		models.UserStatusActive, cutoff)
	if err != nil {
		slog.Error("SQLiteStore ListUsersIdleSince query failed", "error", err)
		return nil, fmt.Errorf("failed to query idle users: %w", err)
	}
	defer rows.Close()
	return collectUserProfiles(rows)
}

// AddConversationMessages appends messages to a user's history.
func (s *SQLiteStore) AddConversationMessages(userID string, msgs ...models.ConversationMessage) error {
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
			 VALUES (?, ?, ?, ?, ?, ?)`,
			userID, m.Role, m.Content, nilIfEmpty(m.ToolCallID), nilIfEmpty(m.ToolName), m.Timestamp); err != nil {
			tx.Rollback()
			slog.Error("SQLiteStore AddConversationMessages failed", "error", err, "userID", userID)
			return fmt.Errorf("failed to insert conversation message: %w", err)
		}
	}
	return tx.Commit()
}

// GetConversationHistory loads a user's history in chronological order.
func (s *SQLiteStore) GetConversationHistory(userID string, limit int) (models.ConversationHistory, error) {
	query := `SELECT role, content, tool_call_id, tool_name, created_at
		FROM conversation_messages WHERE user_id = ? ORDER BY id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore GetConversationHistory query failed", "error", err, "userID", userID)
		return models.ConversationHistory{}, fmt.Errorf("failed to query conversation history: %w", err)
	}
	defer rows.Close()
	return collectHistory(rows)
}

// ClearConversationHistory removes a user's stored chat history.
func (s *SQLiteStore) ClearConversationHistory(userID string) error {
	_, err := s.db.Exec(`DELETE FROM conversation_messages WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore ClearConversationHistory failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to clear conversation history: %w", err)
	}
	slog.Debug("SQLiteStore ClearConversationHistory succeeded", "userID", userID)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
