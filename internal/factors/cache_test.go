package factors

import (
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	cache := NewMemoryCache()
	storedAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	value := Resolved{Factor: EmissionFactor{FactorID: "f-1"}, Origin: OriginStore}

	cache.Set("key-1", value, storedAt)

	got, gotAt, ok := cache.Get("key-1")
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.Factor.FactorID != "f-1" {
		t.Fatalf("unexpected factor %q", got.Factor.FactorID)
	}
	if !gotAt.Equal(storedAt) {
		t.Fatalf("expected stored-at %v, got %v", storedAt, gotAt)
	}
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Now()
	cache.Set("key-1", Resolved{}, now)
	cache.Set("key-2", Resolved{}, now)

	cache.Delete("key-1")
	if _, _, ok := cache.Get("key-1"); ok {
		t.Fatal("expected key-1 removed")
	}
	if cache.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", cache.Len())
	}
}
