package model

import "time"

// Like is one edge in the user-likes-message relation, unique per pair.
// Likes are toggled: a second like by the same user removes the edge.
type Like struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	MessageID int64     `db:"message_id" json:"message_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ToggleLikeResponse reports the state of the edge after a toggle.
type ToggleLikeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}
