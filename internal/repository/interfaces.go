package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"warbler/internal/cache"
	"warbler/internal/model"
)

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)

	// Counter updates run inside follow/unfollow transactions.
	IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
}

// MessageRepository defines data access for messages and likes.
type MessageRepository interface {
	Create(ctx context.Context, userID int64, text string) (*model.Message, error)
	GetByID(ctx context.Context, messageID int64) (*model.Message, error)
	GetByIDs(ctx context.Context, messageIDs []int64) ([]model.Message, error)
	Delete(ctx context.Context, messageID, userID int64) error
	GetUserMessages(ctx context.Context, userID int64, cursor *string, limit int) ([]model.Message, *string, error)

	// ToggleLike flips the like edge for (userID, messageID) in one
	// transaction and returns the resulting state and like count.
	ToggleLike(ctx context.Context, messageID, userID int64) (liked bool, likeCount int, err error)
	CheckLikes(ctx context.Context, userID int64, messageIDs []int64) (map[int64]bool, error)
	GetLikedMessages(ctx context.Context, userID int64, cursor *string, limit int) ([]model.Message, *string, error)

	// Feed cache warming
	GetRecentMessagesByUser(ctx context.Context, userID int64, limit int) ([]cache.MessageScore, error)
	GetFeedMessageIDs(ctx context.Context, followeeIDs []int64, limit int) ([]cache.MessageScore, error)
}

// FollowRepository defines data access for the follow graph.
type FollowRepository interface {
	// Create inserts a follow edge within a transaction.
	// Returns false if the edge already existed.
	Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)

	// Delete removes a follow edge within a transaction.
	// Returns model.ErrNotFollowing if the edge did not exist.
	Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error

	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)

	// CheckFollows reports which of targetIDs the user follows, in one query.
	CheckFollows(ctx context.Context, followerID int64, targetIDs []int64) (map[int64]bool, error)

	// GetFollowerIDs returns every follower id (for feed fan-out).
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)

	// GetFolloweeIDs returns every followee id (for feed cache warming).
	GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error)
}
