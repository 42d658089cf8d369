package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestStore connects to a local Redis instance, skipping the test when
// none is reachable.
func newTestStore(t *testing.T) *RedisStore {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/1"
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	t.Cleanup(func() { client.Close() })
	return NewStore(client, time.Minute)
}

func TestRedisStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, 42)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { store.Destroy(ctx, sessionID) })

	userID, err := store.Get(ctx, sessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if userID != 42 {
		t.Errorf("user id = %d, want 42", userID)
	}
}

func TestRedisStore_GetUnknownSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-session")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestRedisStore_Destroy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID, err := store.Create(ctx, 7)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.Destroy(ctx, sessionID); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := store.Get(ctx, sessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("destroyed session still resolves, err = %v", err)
	}

	// Destroying twice is a no-op
	if err := store.Destroy(ctx, sessionID); err != nil {
		t.Errorf("second destroy: %v", err)
	}
}

func TestRedisStore_DestroyAllForUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id1, _ := store.Create(ctx, 9)
	id2, _ := store.Create(ctx, 9)
	other, _ := store.Create(ctx, 10)
	t.Cleanup(func() { store.Destroy(ctx, other) })

	if err := store.DestroyAllForUser(ctx, 9); err != nil {
		t.Fatalf("destroy all: %v", err)
	}

	for _, id := range []string{id1, id2} {
		if _, err := store.Get(ctx, id); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("session %s should be gone, err = %v", id, err)
		}
	}
	if _, err := store.Get(ctx, other); err != nil {
		t.Errorf("other user's session must survive: %v", err)
	}
}
