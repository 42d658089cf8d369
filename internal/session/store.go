package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CookieName is the cookie that carries the session ID, the only state a
// client holds. The user id itself lives server-side in Redis.
const CookieName = "warbler_session"

const (
	sessionKeyPrefix  = "session:"
	userSessionPrefix = "sessions:user:"
)

// ErrSessionNotFound is returned when a session ID is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// Store is the server-side session state: Anonymous clients have no entry,
// Authenticated clients have an opaque ID mapping to their user id.
type Store interface {
	// Create opens a session for the user and returns the new session ID.
	Create(ctx context.Context, userID int64) (string, error)

	// Get resolves a session ID to a user id, refreshing the TTL on access.
	Get(ctx context.Context, sessionID string) (int64, error)

	// Destroy closes a single session (logout).
	Destroy(ctx context.Context, sessionID string) error

	// DestroyAllForUser closes every session of a user (account deletion).
	DestroyAllForUser(ctx context.Context, userID int64) error
}

// RedisStore implements Store on the shared Redis client.
type RedisStore struct {
	client *redis.Client
	maxAge time.Duration
}

// NewStore creates a session store with the given session lifetime.
func NewStore(client *redis.Client, maxAge time.Duration) *RedisStore {
	return &RedisStore{client: client, maxAge: maxAge}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func userSessionsKey(userID int64) string {
	return fmt.Sprintf("%s%d", userSessionPrefix, userID)
}

// Create stores session:<id> -> userID and tracks the ID in the user's
// session set so DestroyAllForUser can find it later.
func (s *RedisStore) Create(ctx context.Context, userID int64) (string, error) {
	sessionID := uuid.New().String()

	pipe := s.client.Pipeline()
	pipe.Set(ctx, sessionKey(sessionID), strconv.FormatInt(userID, 10), s.maxAge)
	pipe.SAdd(ctx, userSessionsKey(userID), sessionID)
	pipe.Expire(ctx, userSessionsKey(userID), s.maxAge)

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	return sessionID, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (int64, error) {
	val, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get session: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse session user id: %w", err)
	}

	// Sliding expiry: active sessions stay alive.
	s.client.Expire(ctx, sessionKey(sessionID), s.maxAge)

	return userID, nil
}

func (s *RedisStore) Destroy(ctx context.Context, sessionID string) error {
	userID, err := s.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil // already gone, logout is idempotent
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.SRem(ctx, userSessionsKey(userID), sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (s *RedisStore) DestroyAllForUser(ctx context.Context, userID int64) error {
	sessionIDs, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	pipe := s.client.Pipeline()
	for _, id := range sessionIDs {
		pipe.Del(ctx, sessionKey(id))
	}
	pipe.Del(ctx, userSessionsKey(userID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("destroy user sessions: %w", err)
	}
	return nil
}
