package stub

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisCodeStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisCodeStore(client)
	ctx := context.Background()

	if _, err := store.Get(ctx, "+971501234567"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, "+971501234567", "hash-1", 5*time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	hash, err := store.Get(ctx, "+971501234567")
	if err != nil || hash != "hash-1" {
		t.Fatalf("expected hash-1, got %q (%v)", hash, err)
	}

	// A resend overwrites the previous code.
	if err := store.Put(ctx, "+971501234567", "hash-2", 5*time.Minute); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if hash, _ := store.Get(ctx, "+971501234567"); hash != "hash-2" {
		t.Fatalf("expected hash-2, got %q", hash)
	}

	mr.FastForward(6 * time.Minute)
	if _, err := store.Get(ctx, "+971501234567"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}

	store.Put(ctx, "+971501234567", "hash-3", 5*time.Minute)
	if err := store.Delete(ctx, "+971501234567"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "+971501234567"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted, got %v", err)
	}
}

func TestMemoryCodeStoreExpiry(t *testing.T) {
	store := NewMemoryCodeStore().(*memoryCodeStore)
	base := time.Unix(1000, 0)
	store.now = func() time.Time { return base }
	ctx := context.Background()

	store.Put(ctx, "+971501234567", "hash-1", 5*time.Minute)
	if hash, err := store.Get(ctx, "+971501234567"); err != nil || hash != "hash-1" {
		t.Fatalf("expected hash-1, got %q (%v)", hash, err)
	}

	base = base.Add(6 * time.Minute)
	if _, err := store.Get(ctx, "+971501234567"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected lazy expiry, got %v", err)
	}
}
