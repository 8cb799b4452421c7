// Package cache provides the time-bounded, best-effort caches used by the
// orchestrator: inbound message deduplication, whole-query retrieval results,
// and per-user conversation snapshots.
//
// Caches are instance-local unless backed by Redis, and are never the source
// of truth; persisted user progress remains authoritative for state-machine
// correctness.
package cache

import (
	"context"
	"time"
)

// Default TTLs and capacities for the orchestrator caches.
const (
	// DedupTTL bounds how long an inbound message id is remembered.
	DedupTTL = 5 * time.Minute
	// QueryTTL bounds cached whole-query retrieval results.
	QueryTTL = 1 * time.Hour
	// SnapshotTTL bounds cached last-conversation summaries.
	SnapshotTTL = 24 * time.Hour

	// DefaultDedupCapacity bounds the dedup cache size.
	DefaultDedupCapacity = 10000
	// DefaultQueryCapacity bounds the query-result cache size.
	DefaultQueryCapacity = 1000
)

// Cache is a time-bounded key→value store. Implementations are best-effort:
// a miss after Set is acceptable, an error is not surfaced to callers.
type Cache interface {
	// Get returns the cached value and whether it was present and unexpired.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores a value with the given TTL, evicting oldest entries if the
	// implementation is capacity-bounded.
	Set(ctx context.Context, key, value string, ttl time.Duration)
}
