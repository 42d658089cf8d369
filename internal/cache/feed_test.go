package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (FeedCache, *redis.Client) {
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
	return NewFeedCache(client), client
}

func cleanupFeed(t *testing.T, client *redis.Client, userID int64) {
	t.Helper()
	t.Cleanup(func() {
		client.Del(context.Background(), feedKey(userID))
	})
}

func TestRedisFeedCache_AddAndGet(t *testing.T) {
	fc, client := newTestCache(t)
	ctx := context.Background()
	const userID = int64(900001)
	cleanupFeed(t, client, userID)

	for i, ts := range []int64{100, 300, 200} {
		if err := fc.AddMessage(ctx, userID, int64(i+1), ts); err != nil {
			t.Fatalf("add message: %v", err)
		}
	}

	ids, scores, err := fc.GetFeed(ctx, userID, nil, 10)
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}

	// Newest first by score
	want := []int64{2, 3, 1}
	if len(ids) != len(want) {
		t.Fatalf("got %d messages, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}
	if scores[0] != 300 {
		t.Errorf("top score = %f, want 300", scores[0])
	}
}

func TestRedisFeedCache_CursorExcludesSeen(t *testing.T) {
	fc, client := newTestCache(t)
	ctx := context.Background()
	const userID = int64(900002)
	cleanupFeed(t, client, userID)

	for i := int64(1); i <= 5; i++ {
		if err := fc.AddMessage(ctx, userID, i, i*100); err != nil {
			t.Fatalf("add message: %v", err)
		}
	}

	ids, scores, err := fc.GetFeed(ctx, userID, nil, 2)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(ids) != 2 || ids[0] != 5 || ids[1] != 4 {
		t.Fatalf("first page = %v, want [5 4]", ids)
	}

	cursor := scores[len(scores)-1]
	ids, _, err = fc.GetFeed(ctx, userID, &cursor, 2)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 2 {
		t.Errorf("second page = %v, want [3 2]", ids)
	}
}

func TestRedisFeedCache_RemoveMessage(t *testing.T) {
	fc, client := newTestCache(t)
	ctx := context.Background()
	const userID = int64(900003)
	cleanupFeed(t, client, userID)

	fc.AddMessage(ctx, userID, 1, 100)
	fc.AddMessage(ctx, userID, 2, 200)

	if err := fc.RemoveMessage(ctx, userID, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	size, err := fc.Size(ctx, userID)
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != 1 {
		t.Errorf("size = %d, want 1", size)
	}
}

func TestRedisFeedCache_WarmCacheAndExists(t *testing.T) {
	fc, client := newTestCache(t)
	ctx := context.Background()
	const userID = int64(900004)
	cleanupFeed(t, client, userID)

	exists, err := fc.Exists(ctx, userID)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("fresh user should have no cache entry")
	}

	messages := []MessageScore{
		{MessageID: 1, Timestamp: 100},
		{MessageID: 2, Timestamp: 200},
	}
	if err := fc.WarmCache(ctx, userID, messages); err != nil {
		t.Fatalf("warm: %v", err)
	}

	exists, err = fc.Exists(ctx, userID)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("warmed cache should exist")
	}
}
