package cache

import (
	"context"
)

// Dedup is the time-bounded set membership gate for inbound message ids.
// It makes at-least-once delivery idempotent at the orchestration boundary;
// it does not guarantee global idempotency across concurrent instances
// unless backed by a shared Cache.
type Dedup struct {
	cache Cache
}

// NewDedup creates a dedup gate over the given cache backend.
func NewDedup(cache Cache) *Dedup {
	return &Dedup{cache: cache}
}

// Seen reports whether the message id was marked within the TTL window.
func (d *Dedup) Seen(ctx context.Context, messageID string) bool {
	_, ok := d.cache.Get(ctx, "dedup:"+messageID)
	return ok
}

// MarkSeen records the message id for the dedup TTL window.
func (d *Dedup) MarkSeen(ctx context.Context, messageID string) {
	d.cache.Set(ctx, "dedup:"+messageID, "1", DedupTTL)
}
