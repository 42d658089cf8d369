package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"warbler/internal/cache"
	"warbler/internal/model"
)

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create inserts a new message and bumps the author's message_count in one
// transaction. The text column is VARCHAR(140); Postgres rejects longer
// values with a string-truncation error which maps to ErrTextTooLong.
func (r *messageRepository) Create(ctx context.Context, userID int64, text string) (*model.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var message model.Message
	query := `
		INSERT INTO messages (user_id, text)
		VALUES ($1, $2)
		RETURNING id, user_id, text, like_count, created_at
	`
	err = tx.GetContext(ctx, &message, query, userID, text)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "22001" {
			return nil, model.ErrTextTooLong
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE users SET message_count = message_count + 1 WHERE id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("increment message count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &message, nil
}

func (r *messageRepository) GetByID(ctx context.Context, messageID int64) (*model.Message, error) {
	query := `
		SELECT id, user_id, text, like_count, created_at
		FROM messages
		WHERE id = $1
	`
	var message model.Message
	err := r.db.GetContext(ctx, &message, query, messageID)
	if err == sql.ErrNoRows {
		return nil, model.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &message, nil
}

// GetByIDs retrieves multiple messages, preserving the input order.
// Used for hydrating the feed from cache.
func (r *messageRepository) GetByIDs(ctx context.Context, messageIDs []int64) ([]model.Message, error) {
	if len(messageIDs) == 0 {
		return []model.Message{}, nil
	}

	query := `
		SELECT id, user_id, text, like_count, created_at
		FROM messages
		WHERE id = ANY($1)
	`
	var messages []model.Message
	err := r.db.SelectContext(ctx, &messages, query, pq.Array(messageIDs))
	if err != nil {
		return nil, fmt.Errorf("get messages by ids: %w", err)
	}

	byID := make(map[int64]model.Message, len(messages))
	for _, m := range messages {
		byID[m.ID] = m
	}
	ordered := make([]model.Message, 0, len(messageIDs))
	for _, id := range messageIDs {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered, nil
}

// Delete removes a message if userID owns it, and decrements the author's
// message_count. Likes on the message cascade at the database level.
func (r *messageRepository) Delete(ctx context.Context, messageID, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id = $1 AND user_id = $2`, messageID, userID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a missing message from someone else's message
		var exists bool
		r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM messages WHERE id = $1)`, messageID)
		if exists {
			return model.ErrNotMessageOwner
		}
		return model.ErrMessageNotFound
	}

	_, err = tx.ExecContext(ctx, `UPDATE users SET message_count = message_count - 1 WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("decrement message count: %w", err)
	}

	return tx.Commit()
}

// GetUserMessages returns a user's messages newest first, paginated by a
// compound "id:timestamp" cursor.
func (r *messageRepository) GetUserMessages(ctx context.Context, userID int64, cursor *string, limit int) ([]model.Message, *string, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT id, user_id, text, like_count, created_at
			FROM messages
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cursor: %w", err)
		}
		query = `
			SELECT id, user_id, text, like_count, created_at
			FROM messages
			WHERE user_id = $1 AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		`
		args = []interface{}{userID, ts, id, limit + 1}
	}

	var messages []model.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, nil, fmt.Errorf("get user messages: %w", err)
	}

	var nextCursor *string
	if len(messages) > limit {
		messages = messages[:limit]
		last := messages[len(messages)-1]
		c := formatCursor(last.CreatedAt, last.ID)
		nextCursor = &c
	}

	return messages, nextCursor, nil
}

// ToggleLike flips the like edge in a single transaction. Inserting with
// ON CONFLICT DO NOTHING tells us which direction the toggle goes: a new row
// means the user just liked, no row means they already had and we unlike.
func (r *messageRepository) ToggleLike(ctx context.Context, messageID, userID int64) (bool, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the message row so concurrent toggles serialize on it
	var likeCount int
	err = tx.GetContext(ctx, &likeCount, `SELECT like_count FROM messages WHERE id = $1 FOR UPDATE`, messageID)
	if err == sql.ErrNoRows {
		return false, 0, model.ErrMessageNotFound
	}
	if err != nil {
		return false, 0, fmt.Errorf("lock message: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO likes (user_id, message_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, message_id) DO NOTHING
	`, userID, messageID)
	if err != nil {
		return false, 0, fmt.Errorf("insert like: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("get rows affected: %w", err)
	}

	liked := rows > 0
	delta := 1
	if !liked {
		// Edge already existed: this toggle removes it
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE user_id = $1 AND message_id = $2`, userID, messageID); err != nil {
			return false, 0, fmt.Errorf("delete like: %w", err)
		}
		delta = -1
	}

	err = tx.GetContext(ctx, &likeCount, `
		UPDATE messages SET like_count = like_count + $1 WHERE id = $2
		RETURNING like_count
	`, delta, messageID)
	if err != nil {
		return false, 0, fmt.Errorf("update like count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit transaction: %w", err)
	}

	return liked, likeCount, nil
}

// CheckLikes reports which messages the user has liked.
// One query regardless of how many messages.
func (r *messageRepository) CheckLikes(ctx context.Context, userID int64, messageIDs []int64) (map[int64]bool, error) {
	if len(messageIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT message_id FROM likes WHERE user_id = $1 AND message_id = ANY($2)`
	var likedIDs []int64
	err := r.db.SelectContext(ctx, &likedIDs, query, userID, pq.Array(messageIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("check likes: %w", err)
	}

	result := make(map[int64]bool, len(messageIDs))
	for _, id := range messageIDs {
		result[id] = false
	}
	for _, id := range likedIDs {
		result[id] = true
	}
	return result, nil
}

// GetLikedMessages returns messages the user has liked, most recently liked
// first. The cursor orders by the like edge, not the message.
func (r *messageRepository) GetLikedMessages(ctx context.Context, userID int64, cursor *string, limit int) ([]model.Message, *string, error) {
	type row struct {
		model.Message
		LikedAt time.Time `db:"liked_at"`
	}

	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT m.id, m.user_id, m.text, m.like_count, m.created_at, l.created_at AS liked_at
			FROM likes l
			JOIN messages m ON m.id = l.message_id
			WHERE l.user_id = $1
			ORDER BY l.created_at DESC, m.id DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cursor: %w", err)
		}
		query = `
			SELECT m.id, m.user_id, m.text, m.like_count, m.created_at, l.created_at AS liked_at
			FROM likes l
			JOIN messages m ON m.id = l.message_id
			WHERE l.user_id = $1 AND (l.created_at, m.id) < ($2, $3)
			ORDER BY l.created_at DESC, m.id DESC
			LIMIT $4
		`
		args = []interface{}{userID, ts, id, limit + 1}
	}

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, nil, fmt.Errorf("get liked messages: %w", err)
	}

	var nextCursor *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		c := formatCursor(last.LikedAt, last.ID)
		nextCursor = &c
	}

	messages := make([]model.Message, len(rows))
	for i, r := range rows {
		messages[i] = r.Message
	}
	return messages, nextCursor, nil
}

// GetRecentMessagesByUser returns a user's recent messages as cache scores
// (for follow backfill).
func (r *messageRepository) GetRecentMessagesByUser(ctx context.Context, userID int64, limit int) ([]cache.MessageScore, error) {
	query := `
		SELECT id, EXTRACT(EPOCH FROM created_at)::bigint AS timestamp
		FROM messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	type row struct {
		ID        int64 `db:"id"`
		Timestamp int64 `db:"timestamp"`
	}
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("get recent messages: %w", err)
	}

	messages := make([]cache.MessageScore, len(rows))
	for i, r := range rows {
		messages[i] = cache.MessageScore{MessageID: r.ID, Timestamp: r.Timestamp}
	}
	return messages, nil
}

// GetFeedMessageIDs returns message ids from all followees for cache warming.
func (r *messageRepository) GetFeedMessageIDs(ctx context.Context, followeeIDs []int64, limit int) ([]cache.MessageScore, error) {
	if len(followeeIDs) == 0 {
		return []cache.MessageScore{}, nil
	}

	query := `
		SELECT id, EXTRACT(EPOCH FROM created_at)::bigint AS timestamp
		FROM messages
		WHERE user_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	type row struct {
		ID        int64 `db:"id"`
		Timestamp int64 `db:"timestamp"`
	}
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(followeeIDs), limit); err != nil {
		return nil, fmt.Errorf("get feed message ids: %w", err)
	}

	messages := make([]cache.MessageScore, len(rows))
	for i, r := range rows {
		messages[i] = cache.MessageScore{MessageID: r.ID, Timestamp: r.Timestamp}
	}
	return messages, nil
}

// Helper: parse compound cursor "id:timestamp"
func parseCursor(cursor string) (time.Time, int64, error) {
	parts := strings.Split(cursor, ":")
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("invalid cursor format")
	}
	var id int64
	var ts int64
	if _, err := fmt.Sscanf(parts[0], "%d", &id); err != nil {
		return time.Time{}, 0, err
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &ts); err != nil {
		return time.Time{}, 0, err
	}
	return time.Unix(ts, 0), id, nil
}

// Helper: format compound cursor "id:timestamp"
func formatCursor(t time.Time, id int64) string {
	return fmt.Sprintf("%d:%d", id, t.Unix())
}
