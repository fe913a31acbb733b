package worksheet

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestServedStore(t *testing.T, ttl time.Duration) (*ServedStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewServedStore(rdb, ttl), mr
}

func TestServedStoreRoundTrip(t *testing.T) {
	store, _ := newTestServedStore(t, time.Hour)
	ctx := context.Background()

	if err := store.MarkServed(ctx, "fork", []string{"a", "b", "c"}); err != nil {
		t.Fatalf("MarkServed: %v", err)
	}
	got, err := store.RecentlyServed(ctx, "fork")
	if err != nil {
		t.Fatalf("RecentlyServed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d ids, want 3: %v", len(got), got)
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, ok := got[id]; !ok {
			t.Fatalf("missing id %s", id)
		}
	}
}

func TestServedStorePerThemeIsolation(t *testing.T) {
	store, _ := newTestServedStore(t, time.Hour)
	ctx := context.Background()

	if err := store.MarkServed(ctx, "fork", []string{"a"}); err != nil {
		t.Fatalf("MarkServed: %v", err)
	}
	got, err := store.RecentlyServed(ctx, "pin")
	if err != nil {
		t.Fatalf("RecentlyServed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("pin theme should be empty, got %v", got)
	}
}

func TestServedStoreExpiry(t *testing.T) {
	store, mr := newTestServedStore(t, time.Minute)
	ctx := context.Background()

	if err := store.MarkServed(ctx, "fork", []string{"a", "b"}); err != nil {
		t.Fatalf("MarkServed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	got, err := store.RecentlyServed(ctx, "fork")
	if err != nil {
		t.Fatalf("RecentlyServed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("entries should have expired, got %v", got)
	}
}

func TestServedStoreSkipsEmptyIDs(t *testing.T) {
	store, _ := newTestServedStore(t, time.Hour)
	ctx := context.Background()

	if err := store.MarkServed(ctx, "fork", nil); err != nil {
		t.Fatalf("MarkServed(nil): %v", err)
	}
	if err := store.MarkServed(ctx, "fork", []string{"", "  "}); err != nil {
		t.Fatalf("MarkServed(blank): %v", err)
	}
	got, err := store.RecentlyServed(ctx, "fork")
	if err != nil {
		t.Fatalf("RecentlyServed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("blank ids should not be stored, got %v", got)
	}
}
