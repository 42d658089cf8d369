package model

import (
	"errors"
	"time"
)

// Message represents a single warble.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Text      string    `db:"text" json:"text"`
	LikeCount int       `db:"like_count" json:"like_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Joined fields (not in the messages table)
	Author  *UserSummary `json:"author,omitempty"`
	IsLiked bool         `json:"is_liked"`
}

// CreateMessageRequest is the request body for creating a message.
type CreateMessageRequest struct {
	Text string `json:"text"`
}

// MessageListResponse is the paginated message list response.
type MessageListResponse struct {
	Messages   []Message `json:"messages"`
	NextCursor *string   `json:"next_cursor,omitempty"`
	HasMore    bool      `json:"has_more"`
}

// FeedMessage is an enriched message for feed display.
type FeedMessage struct {
	Message
	Author UserSummary `json:"author"`
}

// FeedResponse is the paginated feed response.
type FeedResponse struct {
	Messages   []FeedMessage `json:"messages"`
	NextCursor *string       `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// MaxMessageLength is the storage bound on message text. The column is
// VARCHAR(140); longer writes fail at the database, not just here.
const MaxMessageLength = 140

// Message errors
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotMessageOwner = errors.New("not the owner of this message")
	ErrTextRequired    = errors.New("message text is required")
	ErrTextTooLong     = errors.New("message text too long")
)
