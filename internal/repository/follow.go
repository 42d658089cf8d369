package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"warbler/internal/model"
)

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

// Create inserts a follow edge. ON CONFLICT DO NOTHING makes a repeated
// follow a no-op; the bool return tells the caller whether the edge is new.
func (r *followRepository) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("insert follow: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotFollowing
	}
	return nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`
	err := r.db.GetContext(ctx, &exists, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("check follow exists: %w", err)
	}
	return exists, nil
}

// GetFollowers returns users following userID, newest edge first, paginated
// by the edge's created_at.
func (r *followRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	type row struct {
		model.UserSummary
		FollowedAt time.Time `db:"followed_at"`
	}

	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT u.id, u.username, u.image_url, f.created_at AS followed_at
			FROM follows f
			JOIN users u ON u.id = f.follower_id
			WHERE f.followee_id = $1
			ORDER BY f.created_at DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		query = `
			SELECT u.id, u.username, u.image_url, f.created_at AS followed_at
			FROM follows f
			JOIN users u ON u.id = f.follower_id
			WHERE f.followee_id = $1 AND f.created_at < $2
			ORDER BY f.created_at DESC
			LIMIT $3
		`
		args = []interface{}{userID, *cursor, limit + 1}
	}

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, nil, fmt.Errorf("get followers: %w", err)
	}

	var nextCursor *time.Time
	if len(rows) > limit {
		rows = rows[:limit]
		c := rows[len(rows)-1].FollowedAt
		nextCursor = &c
	}

	users := make([]model.UserSummary, len(rows))
	for i, r := range rows {
		users[i] = r.UserSummary
	}
	return users, nextCursor, nil
}

// GetFollowing returns users userID follows, newest edge first.
func (r *followRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	type row struct {
		model.UserSummary
		FollowedAt time.Time `db:"followed_at"`
	}

	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT u.id, u.username, u.image_url, f.created_at AS followed_at
			FROM follows f
			JOIN users u ON u.id = f.followee_id
			WHERE f.follower_id = $1
			ORDER BY f.created_at DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		query = `
			SELECT u.id, u.username, u.image_url, f.created_at AS followed_at
			FROM follows f
			JOIN users u ON u.id = f.followee_id
			WHERE f.follower_id = $1 AND f.created_at < $2
			ORDER BY f.created_at DESC
			LIMIT $3
		`
		args = []interface{}{userID, *cursor, limit + 1}
	}

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, nil, fmt.Errorf("get following: %w", err)
	}

	var nextCursor *time.Time
	if len(rows) > limit {
		rows = rows[:limit]
		c := rows[len(rows)-1].FollowedAt
		nextCursor = &c
	}

	users := make([]model.UserSummary, len(rows))
	for i, r := range rows {
		users[i] = r.UserSummary
	}
	return users, nextCursor, nil
}

// CheckFollows reports which of targetIDs the user follows.
// One query regardless of how many targets.
func (r *followRepository) CheckFollows(ctx context.Context, followerID int64, targetIDs []int64) (map[int64]bool, error) {
	if len(targetIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT followee_id FROM follows WHERE follower_id = $1 AND followee_id = ANY($2)`
	var followedIDs []int64
	err := r.db.SelectContext(ctx, &followedIDs, query, followerID, pq.Array(targetIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("check follows: %w", err)
	}

	result := make(map[int64]bool, len(targetIDs))
	for _, id := range targetIDs {
		result[id] = false
	}
	for _, id := range followedIDs {
		result[id] = true
	}
	return result, nil
}

func (r *followRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT follower_id FROM follows WHERE followee_id = $1`
	err := r.db.SelectContext(ctx, &ids, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get follower ids: %w", err)
	}
	return ids, nil
}

func (r *followRepository) GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT followee_id FROM follows WHERE follower_id = $1`
	err := r.db.SelectContext(ctx, &ids, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get followee ids: %w", err)
	}
	return ids, nil
}
