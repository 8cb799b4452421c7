// Package store provides storage backends for MomentoBot.
//
// It defines the Store interface over user profiles and conversation history,
// with SQLite and PostgreSQL implementations. The persisted user profile is
// the single source of truth for assessment state-machine correctness; the
// in-process caches are never authoritative.
package store

import (
	"strings"
	"time"

	"github.com/momentohub/MomentoBot/internal/models"
)

// Store is the persistence contract consumed by the assessment engine,
// conversation memory, and engagement job.
type Store interface {
	// GetUserProfile returns the profile for the given user id, or nil if
	// the user has never been seen.
	GetUserProfile(id string) (*models.UserProfile, error)

	// SaveUserProfile upserts the profile document and bumps updated_at.
	SaveUserProfile(profile models.UserProfile) error

	// ListUsersIdleSince returns active users whose last write predates cutoff.
	ListUsersIdleSince(cutoff time.Time) ([]models.UserProfile, error)

	// AddConversationMessages appends messages to a user's ordered history.
	AddConversationMessages(userID string, msgs ...models.ConversationMessage) error

	// GetConversationHistory loads up to limit most recent messages for a
	// user, in chronological order. limit <= 0 means no limit.
	GetConversationHistory(userID string, limit int) (models.ConversationHistory, error)

	// ClearConversationHistory removes a user's stored chat history
	// (administrative cleanup).
	ClearConversationHistory(userID string) error

	// Close releases the underlying database handle.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType inspects a DSN and reports "postgres" or "sqlite".
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
