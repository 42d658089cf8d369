package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// FeedCachePrefix is the key prefix for per-user feed caches
	FeedCachePrefix = "feed:user:"

	// FeedCacheCap is the maximum number of messages cached per user
	FeedCacheCap = 500

	// FeedCacheTTL is the idle lifetime of a feed cache entry
	FeedCacheTTL = 7 * 24 * time.Hour
)

// MessageScore pairs a message id with its creation timestamp, which is the
// sorted-set score ordering the feed.
type MessageScore struct {
	MessageID int64
	Timestamp int64 // Unix timestamp
}

// FeedCache holds each user's home timeline as message ids ordered by time.
// An interface so tests can substitute the Redis backend.
type FeedCache interface {
	// AddMessage adds a message to a user's feed cache.
	AddMessage(ctx context.Context, userID, messageID int64, timestamp int64) error

	// RemoveMessage removes a message from a user's feed cache.
	RemoveMessage(ctx context.Context, userID, messageID int64) error

	// GetFeed returns message ids from a user's feed cache, newest first.
	// With a cursor score only messages strictly older than it are returned.
	GetFeed(ctx context.Context, userID int64, cursorScore *float64, limit int) (messageIDs []int64, scores []float64, err error)

	// WarmCache bulk-inserts messages into a user's feed cache.
	WarmCache(ctx context.Context, userID int64, messages []MessageScore) error

	// Size returns the number of messages in a user's feed cache.
	Size(ctx context.Context, userID int64) (int64, error)

	// Exists reports whether the user has a feed cache entry at all.
	// False means a new user or an expired key; callers should warm it.
	Exists(ctx context.Context, userID int64) (bool, error)
}

// RedisFeedCache implements FeedCache using Redis sorted sets.
type RedisFeedCache struct {
	client *redis.Client
}

// NewFeedCache creates a FeedCache backed by Redis.
func NewFeedCache(client *redis.Client) FeedCache {
	return &RedisFeedCache{client: client}
}

func feedKey(userID int64) string {
	return fmt.Sprintf("%s%d", FeedCachePrefix, userID)
}

// AddMessage pipelines ZADD + ZREMRANGEBYRANK (keep the cap) + EXPIRE.
func (c *RedisFeedCache) AddMessage(ctx context.Context, userID, messageID int64, timestamp int64) error {
	key := feedKey(userID)

	pipe := c.client.Pipeline()

	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(timestamp),
		Member: strconv.FormatInt(messageID, 10),
	})

	// Keep the newest FeedCacheCap scores, drop the rest. Rank 0 is the
	// oldest member, so everything below -cap-1 goes.
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))

	pipe.Expire(ctx, key, FeedCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedCache] AddMessage FAILED: user=%d message=%d err=%v", userID, messageID, err)
		return fmt.Errorf("add message to feed: %w", err)
	}
	return nil
}

func (c *RedisFeedCache) RemoveMessage(ctx context.Context, userID, messageID int64) error {
	key := feedKey(userID)
	member := strconv.FormatInt(messageID, 10)

	if err := c.client.ZRem(ctx, key, member).Err(); err != nil {
		log.Printf("[FeedCache] RemoveMessage FAILED: user=%d message=%d err=%v", userID, messageID, err)
		return fmt.Errorf("remove message from feed: %w", err)
	}
	return nil
}

// GetFeed uses ZREVRANGE without a cursor, ZREVRANGEBYSCORE with an
// exclusive upper bound otherwise.
func (c *RedisFeedCache) GetFeed(ctx context.Context, userID int64, cursorScore *float64, limit int) ([]int64, []float64, error) {
	key := feedKey(userID)

	var results []redis.Z
	var err error

	if cursorScore == nil {
		results, err = c.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	} else {
		results, err = c.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
			Min:    "-inf",
			Max:    fmt.Sprintf("(%f", *cursorScore), // "(" = exclusive
			Offset: 0,
			Count:  int64(limit),
		}).Result()
	}

	if err != nil {
		log.Printf("[FeedCache] GetFeed FAILED: user=%d err=%v", userID, err)
		return nil, nil, fmt.Errorf("get feed: %w", err)
	}

	// Refresh TTL on access
	c.client.Expire(ctx, key, FeedCacheTTL)

	messageIDs := make([]int64, len(results))
	scores := make([]float64, len(results))

	for i, z := range results {
		id, err := strconv.ParseInt(z.Member.(string), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("parse message id: %w", err)
		}
		messageIDs[i] = id
		scores[i] = z.Score
	}

	return messageIDs, scores, nil
}

// WarmCache bulk-inserts messages using a single pipeline.
func (c *RedisFeedCache) WarmCache(ctx context.Context, userID int64, messages []MessageScore) error {
	if len(messages) == 0 {
		return nil
	}

	key := feedKey(userID)

	members := make([]redis.Z, len(messages))
	for i, m := range messages {
		members[i] = redis.Z{
			Score:  float64(m.Timestamp),
			Member: strconv.FormatInt(m.MessageID, 10),
		}
	}

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))
	pipe.Expire(ctx, key, FeedCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedCache] WarmCache FAILED: user=%d messages=%d err=%v", userID, len(messages), err)
		return fmt.Errorf("warm cache: %w", err)
	}

	log.Printf("[FeedCache] WarmCache OK: user=%d messages=%d", userID, len(messages))
	return nil
}

func (c *RedisFeedCache) Size(ctx context.Context, userID int64) (int64, error) {
	size, err := c.client.ZCard(ctx, feedKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("get cache size: %w", err)
	}
	return size, nil
}

func (c *RedisFeedCache) Exists(ctx context.Context, userID int64) (bool, error) {
	exists, err := c.client.Exists(ctx, feedKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check cache exists: %w", err)
	}
	return exists > 0, nil
}
