package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return mr, client, cleanup
}

func TestStore_SetAndGet(t *testing.T) {
	_, client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewStore(client)
	ctx := context.Background()

	if err := store.Set(ctx, "stream_url:abc", []byte("https://x/audio.m4a"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "stream_url:abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "https://x/audio.m4a" {
		t.Errorf("Get = %q, want %q", got, "https://x/audio.m4a")
	}
}

func TestStore_GetMiss(t *testing.T) {
	_, client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewStore(client)

	got, err := store.Get(context.Background(), "metadata:nothere")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("Get on absent key = %q, want nil", got)
	}
}

func TestStore_SetWritesTimestamp(t *testing.T) {
	_, client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewStore(client)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	if err := store.Set(ctx, "metadata:abc", []byte(`{}`), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ts, err := store.Timestamp(ctx, "metadata:abc")
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if ts.IsZero() {
		t.Fatal("expected a timestamp to be written alongside the value")
	}
	if ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Errorf("timestamp %v not close to now", ts)
	}
}

func TestStore_TimestampAbsent(t *testing.T) {
	_, client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewStore(client)

	ts, err := store.Timestamp(context.Background(), "metadata:nothere")
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("Timestamp on absent key = %v, want zero time", ts)
	}
}

func TestStore_TTLRemaining(t *testing.T) {
	_, client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewStore(client)
	ctx := context.Background()

	if err := store.Set(ctx, "stream_url:abc", []byte("u"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ttl, err := store.TTLRemaining(ctx, "stream_url:abc")
	if err != nil {
		t.Fatalf("TTLRemaining failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTLRemaining = %v, want (0, 1h]", ttl)
	}

	// Absent keys keep Redis's negative sentinel.
	ttl, err = store.TTLRemaining(ctx, "stream_url:nothere")
	if err != nil {
		t.Fatalf("TTLRemaining failed: %v", err)
	}
	if ttl >= 0 {
		t.Errorf("TTLRemaining on absent key = %v, want negative sentinel", ttl)
	}
}

func TestStore_ExpiryRemovesBothEntries(t *testing.T) {
	mr, client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewStore(client)
	ctx := context.Background()

	if err := store.Set(ctx, "stream_url:abc", []byte("u"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	got, err := store.Get(ctx, "stream_url:abc")
	if err != nil || got != nil {
		t.Errorf("Get after expiry = (%q, %v), want (nil, nil)", got, err)
	}
	ts, err := store.Timestamp(ctx, "stream_url:abc")
	if err != nil || !ts.IsZero() {
		t.Errorf("Timestamp after expiry = (%v, %v), want (zero, nil)", ts, err)
	}
}

func TestStore_GetAfterClose(t *testing.T) {
	mr, client, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewStore(client)
	mr.Close()

	if _, err := store.Get(context.Background(), "metadata:abc"); err == nil {
		t.Error("expected an error when the backing store is down")
	}
}
