package cache

import (
	"context"
	"testing"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "tx-1"); err != nil || ok {
		t.Fatalf("Get on empty cache = %v, %v", ok, err)
	}

	if err := c.Set(ctx, "tx-1", 0.42); err != nil {
		t.Fatalf("Set: %v", err)
	}

	prob, ok, err := c.Get(ctx, "tx-1")
	if err != nil || !ok {
		t.Fatalf("Get after Set = %v, %v", ok, err)
	}
	if prob != 0.42 {
		t.Errorf("Get = %v, want 0.42", prob)
	}
}

func TestNoopCacheNeverHits(t *testing.T) {
	c := Noop{}
	ctx := context.Background()

	if err := c.Set(ctx, "tx-1", 0.42); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "tx-1"); err != nil || ok {
		t.Errorf("Noop Get = %v, %v", ok, err)
	}
}
