package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}

	c.Set(ctx, "k", "v", time.Minute)
	got, ok := c.Get(ctx, "k")
	if !ok || got != "v" {
		t.Errorf("expected hit with 'v', got %q ok=%v", got, ok)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set(ctx, "k", "v", 5*time.Minute)

	c.now = func() time.Time { return base.Add(4 * time.Minute) }
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Error("expected hit inside TTL")
	}

	c.now = func() time.Time { return base.Add(6 * time.Minute) }
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected miss after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry collected, len=%d", c.Len())
	}
}

func TestMemoryCacheCapacityEvictsOldest(t *testing.T) {
	c := NewMemoryCache(2)
	ctx := context.Background()

	c.Set(ctx, "a", "1", time.Minute)
	c.Set(ctx, "b", "2", time.Minute)
	c.Set(ctx, "c", "3", time.Minute)

	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("expected oldest entry evicted")
	}
	for _, k := range []string{"b", "c"} {
		if _, ok := c.Get(ctx, k); !ok {
			t.Errorf("expected %q retained", k)
		}
	}
	if c.Len() != 2 {
		t.Errorf("expected len 2, got %d", c.Len())
	}
}

func TestMemoryCacheOverwrite(t *testing.T) {
	c := NewMemoryCache(2)
	ctx := context.Background()

	c.Set(ctx, "k", "old", time.Minute)
	c.Set(ctx, "k", "new", time.Minute)
	got, ok := c.Get(ctx, "k")
	if !ok || got != "new" {
		t.Errorf("expected 'new', got %q ok=%v", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected single entry after overwrite, got %d", c.Len())
	}
}

func TestDedup(t *testing.T) {
	d := NewDedup(NewMemoryCache(DefaultDedupCapacity))
	ctx := context.Background()

	if d.Seen(ctx, "msg-1") {
		t.Error("expected unseen message id")
	}
	d.MarkSeen(ctx, "msg-1")
	if !d.Seen(ctx, "msg-1") {
		t.Error("expected message id marked seen")
	}
	if d.Seen(ctx, "msg-2") {
		t.Error("expected distinct id unseen")
	}
}
