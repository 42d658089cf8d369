package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types carried on the feed stream
const (
	EventMessageCreated = "message_created"
	EventMessageDeleted = "message_deleted"
	EventUserFollowed   = "user_followed"
	EventUserUnfollowed = "user_unfollowed"
)

// StreamFeed is the Redis stream feeding the timeline workers.
const StreamFeed = "stream:feed"

// ConsumerGroupFeed is the consumer group name for feed workers.
const ConsumerGroupFeed = "feed_workers"

// FeedEvent is one event on the feed stream. All event types share this
// shape; unused fields stay zero.
type FeedEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix time the event occurred

	// Message events
	MessageID int64 `json:"message_id,omitempty"`
	AuthorID  int64 `json:"author_id,omitempty"`

	// Follow events
	FollowerID int64 `json:"follower_id,omitempty"`
	FolloweeID int64 `json:"followee_id,omitempty"`
}

// NewMessageCreatedEvent signals a new message to fan out to follower feeds.
func NewMessageCreatedEvent(messageID, authorID int64) FeedEvent {
	return FeedEvent{
		Type:      EventMessageCreated,
		Timestamp: time.Now().Unix(),
		MessageID: messageID,
		AuthorID:  authorID,
	}
}

// NewMessageDeletedEvent signals a message to remove from follower feeds.
func NewMessageDeletedEvent(messageID, authorID int64) FeedEvent {
	return FeedEvent{
		Type:      EventMessageDeleted,
		Timestamp: time.Now().Unix(),
		MessageID: messageID,
		AuthorID:  authorID,
	}
}

// NewUserFollowedEvent signals a follow; workers backfill the followee's
// recent messages into the follower's feed cache.
func NewUserFollowedEvent(followerID, followeeID int64) FeedEvent {
	return FeedEvent{
		Type:       EventUserFollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// NewUserUnfollowedEvent signals an unfollow; workers purge the followee's
// messages from the follower's feed cache.
func NewUserUnfollowedEvent(followerID, followeeID int64) FeedEvent {
	return FeedEvent{
		Type:       EventUserUnfollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// ToMap serializes the event for XADD. Streams store field-value pairs, so
// the full event rides in a JSON "data" field next to a bare "type".
func (e FeedEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseFeedEvent decodes a FeedEvent from stream message values.
func ParseFeedEvent(values map[string]interface{}) (FeedEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return FeedEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event FeedEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return FeedEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
