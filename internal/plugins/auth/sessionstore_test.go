package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newTestRedis starts an in-process Redis and a client pointed at it.
func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

// storeContract runs the behaviour every SessionStore must share.
func storeContract(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()

	in := &Session{UserID: 42, Username: "somchai", StudentID: 7, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	token, err := store.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !validTokenFormat(token) {
		t.Fatalf("expected 64 hex chars, got %q", token)
	}

	got, err := store.Get(ctx, token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != 42 || got.Username != "somchai" || got.StudentID != 7 {
		t.Errorf("unexpected session: %+v", got)
	}
	if !got.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("expected created_at %s, got %s", in.CreatedAt, got.CreatedAt)
	}

	other, err := store.Create(ctx, in)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if other == token {
		t.Error("expected distinct tokens per session")
	}

	if _, err := store.Get(ctx, "deadbeef"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for unknown token, got %v", err)
	}

	if err := store.Delete(ctx, token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, token); err != nil {
		t.Errorf("expected deleting twice to be harmless, got %v", err)
	}

	if _, err := store.Get(ctx, other); err != nil {
		t.Errorf("expected unrelated session to survive, got %v", err)
	}
}

func TestMemorySessionStore_Contract(t *testing.T) {
	store := NewMemorySessionStore(0)
	defer store.Close()
	storeContract(t, store)
}

func TestRedisSessionStore_Contract(t *testing.T) {
	_, client := newTestRedis(t)
	storeContract(t, NewRedisSessionStore(client, 0))
}

func TestMemorySessionStore_NoTTLNeverExpires(t *testing.T) {
	store := NewMemorySessionStore(0)
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }
	token, _ := store.Create(context.Background(), &Session{UserID: 1})

	now = now.Add(10 * 365 * 24 * time.Hour)
	if _, err := store.Get(context.Background(), token); err != nil {
		t.Errorf("expected session without TTL to persist, got %v", err)
	}
}

func TestMemorySessionStore_TTL(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }

	token, _ := store.Create(context.Background(), &Session{UserID: 1})
	stale, _ := store.Create(context.Background(), &Session{UserID: 2})

	now = now.Add(59 * time.Minute)
	if _, err := store.Get(context.Background(), token); err != nil {
		t.Fatalf("expected live session, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(context.Background(), token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected expiry after TTL, got %v", err)
	}

	store.sweep(now)
	if store.Len() != 0 {
		t.Errorf("expected sweep to drop %s, %d records left", stale, store.Len())
	}
}

func TestRedisSessionStore_TTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisSessionStore(client, time.Hour)

	token, err := store.Create(context.Background(), &Session{UserID: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ttl := mr.TTL(sessionKeyPrefix + token); ttl != time.Hour {
		t.Errorf("expected 1h key TTL, got %s", ttl)
	}

	mr.FastForward(time.Hour + time.Second)
	if _, err := store.Get(context.Background(), token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected expiry, got %v", err)
	}
}

func TestRedisSessionStore_NoTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisSessionStore(client, 0)

	token, _ := store.Create(context.Background(), &Session{UserID: 1})
	if ttl := mr.TTL(sessionKeyPrefix + token); ttl != 0 {
		t.Errorf("expected no key TTL, got %s", ttl)
	}
}

func TestRedisSessionStore_BackendDown(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisSessionStore(client, 0)
	mr.Close()

	_, err := store.Get(context.Background(), "0000")
	if err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected infrastructure error when Redis is down, got %v", err)
	}
}
