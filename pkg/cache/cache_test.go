package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/filetally/pkg/cache"
	"github.com/yeisme/filetally/pkg/internal/storage/kv"
)

type verdict struct {
	FileID string `json:"file_id"`
	Gone   int    `json:"gone"`
}

func newCache(t *testing.T, opts ...cache.Option) (*cache.Cache, kv.KVStore) {
	t.Helper()

	store, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewMemoryKV: %v", err)
	}

	return cache.NewCache(store, opts...), store
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	want := verdict{FileID: "BQAC", Gone: 2}
	if err := cache.Set(ctx, c, "v", want, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := cache.Get[verdict](ctx, c, "v")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestGetMiss(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	if _, err := cache.Get[int](ctx, c, "missing"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	v, ok, err := cache.Lookup[int](ctx, c, "missing")
	if err != nil || ok || v != 0 {
		t.Fatalf("Lookup miss = (%d, %v, %v)", v, ok, err)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	a, store := newCache(t, cache.WithNamespace("a"))
	b := cache.NewCache(store, cache.WithNamespace("b:"))

	if err := cache.Set(ctx, a, "k", 1, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, ok, _ := cache.Lookup[int](ctx, b, "k"); ok {
		t.Fatalf("namespace b sees key from a")
	}

	if ok, _ := store.Exists(ctx, "a:k"); !ok {
		t.Fatalf("expected raw key a:k in store")
	}

	keys, err := a.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}

	if len(keys) != 1 || keys[0] != "k" {
		t.Fatalf("Keys = %v", keys)
	}
}

func TestIncr(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t, cache.WithNamespace("ledger"))

	for want := 1; want <= 3; want++ {
		n, err := cache.Incr(ctx, c, "f1", time.Hour)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}

		if n != want {
			t.Fatalf("Incr = %d, want %d", n, want)
		}
	}

	if err := c.Delete(ctx, "f1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if n, _ := cache.Incr(ctx, c, "f1", time.Hour); n != 1 {
		t.Fatalf("Incr after delete = %d, want 1", n)
	}
}

func TestDeleteMissingIsNoError(t *testing.T) {
	c, _ := newCache(t)

	if err := c.Delete(context.Background(), "nope"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c, store := newCache(t, cache.WithNamespace("ledger"))

	_ = cache.Set(ctx, c, "x", 1, 0)
	_ = cache.Set(ctx, c, "y", 2, 0)
	_ = store.Set(ctx, "other", []byte("1"), 0)

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if keys, _ := c.Keys(ctx); len(keys) != 0 {
		t.Fatalf("keys left after Clear: %v", keys)
	}

	if ok, _ := store.Exists(ctx, "other"); !ok {
		t.Fatalf("Clear removed a key outside the namespace")
	}
}

func BenchmarkIncr(b *testing.B) {
	ctx := context.Background()
	store, _ := kv.NewMemoryKV(ctx, nil)
	c := cache.NewCache(store, cache.WithNamespace("bench"))

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = cache.Incr(ctx, c, "k", time.Minute)
	}
}
