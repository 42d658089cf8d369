package worker

import (
	"context"
	"fmt"
	"log"

	"warbler/internal/cache"
	"warbler/internal/queue"
)

// FollowerProvider fetches follower ids for fan-out. Abstracts the
// repository so workers do not depend on the database package directly.
type FollowerProvider interface {
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

// RecentMessagesProvider fetches a user's recent messages for backfill and
// removal when follow edges change.
type RecentMessagesProvider interface {
	GetRecentMessagesByUser(ctx context.Context, userID int64, limit int) ([]cache.MessageScore, error)
}

const (
	// backfillLimit is how many recent messages a new follow pulls into
	// the follower's feed.
	backfillLimit = 20

	// removeLimit bounds how many of a followee's messages are purged on
	// unfollow.
	removeLimit = 100
)

// Handler processes feed events read off the queue.
type Handler struct {
	feedCache        cache.FeedCache
	followerProvider FollowerProvider
	messagesProvider RecentMessagesProvider
}

func NewHandler(feedCache cache.FeedCache, followerProvider FollowerProvider, messagesProvider RecentMessagesProvider) *Handler {
	return &Handler{
		feedCache:        feedCache,
		followerProvider: followerProvider,
		messagesProvider: messagesProvider,
	}
}

// HandleEvent routes an event to its handler by type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.FeedEvent) error {
	switch event.Type {
	case queue.EventMessageCreated:
		return h.handleMessageCreated(ctx, event)
	case queue.EventMessageDeleted:
		return h.handleMessageDeleted(ctx, event)
	case queue.EventUserFollowed:
		return h.handleUserFollowed(ctx, event)
	case queue.EventUserUnfollowed:
		return h.handleUserUnfollowed(ctx, event)
	default:
		return fmt.Errorf("unknown event type: %s", event.Type)
	}
}

// handleMessageCreated fans a new message out to every follower's feed
// cache, plus the author's own.
func (h *Handler) handleMessageCreated(ctx context.Context, event queue.FeedEvent) error {
	followers, err := h.followerProvider.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	var failCount int
	for _, followerID := range followers {
		if err := h.feedCache.AddMessage(ctx, followerID, event.MessageID, event.Timestamp); err != nil {
			// One follower failing must not stop the fan-out
			failCount++
		}
	}

	// Authors see their own messages in their feed
	if err := h.feedCache.AddMessage(ctx, event.AuthorID, event.MessageID, event.Timestamp); err != nil {
		failCount++
	}

	log.Printf("[Worker] MessageCreated: message=%d fanout=%d failed=%d",
		event.MessageID, len(followers)+1, failCount)
	return nil
}

// handleMessageDeleted removes a message from every follower's feed cache.
func (h *Handler) handleMessageDeleted(ctx context.Context, event queue.FeedEvent) error {
	followers, err := h.followerProvider.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	var failCount int
	for _, followerID := range followers {
		if err := h.feedCache.RemoveMessage(ctx, followerID, event.MessageID); err != nil {
			failCount++
		}
	}

	if err := h.feedCache.RemoveMessage(ctx, event.AuthorID, event.MessageID); err != nil {
		failCount++
	}

	log.Printf("[Worker] MessageDeleted: message=%d fanout=%d failed=%d",
		event.MessageID, len(followers)+1, failCount)
	return nil
}

// handleUserFollowed backfills the follower's feed with the followee's
// recent messages.
func (h *Handler) handleUserFollowed(ctx context.Context, event queue.FeedEvent) error {
	messages, err := h.messagesProvider.GetRecentMessagesByUser(ctx, event.FolloweeID, backfillLimit)
	if err != nil {
		return fmt.Errorf("get recent messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	if err := h.feedCache.WarmCache(ctx, event.FollowerID, messages); err != nil {
		return fmt.Errorf("backfill feed: %w", err)
	}

	log.Printf("[Worker] UserFollowed: follower=%d backfilled=%d", event.FollowerID, len(messages))
	return nil
}

// handleUserUnfollowed purges the followee's messages from the follower's
// feed cache.
func (h *Handler) handleUserUnfollowed(ctx context.Context, event queue.FeedEvent) error {
	messages, err := h.messagesProvider.GetRecentMessagesByUser(ctx, event.FolloweeID, removeLimit)
	if err != nil {
		return fmt.Errorf("get messages to remove: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	var failCount int
	for _, m := range messages {
		if err := h.feedCache.RemoveMessage(ctx, event.FollowerID, m.MessageID); err != nil {
			failCount++
		}
	}

	log.Printf("[Worker] UserUnfollowed: follower=%d removed=%d failed=%d",
		event.FollowerID, len(messages), failCount)
	return nil
}
