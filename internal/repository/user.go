package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"warbler/internal/model"
)

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// mapUniqueViolation translates a unique-constraint error into the model
// sentinel matching the violated constraint.
func mapUniqueViolation(err error) error {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return nil
	}
	if strings.Contains(pqErr.Constraint, "email") {
		return model.ErrEmailTaken
	}
	return model.ErrUsernameTaken
}

// Create inserts a new user and fills in the generated fields.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (username, email, password_hashed, image_url, header_image_url, bio, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, follower_count, following_count, message_count, created_at, updated_at
	`
	err := r.db.GetContext(ctx, user, query,
		user.Username, user.Email, user.PasswordHashed,
		user.ImageURL, user.HeaderImageURL, user.Bio, user.Location)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, username, email, password_hashed, image_url, header_image_url,
		       bio, location, follower_count, following_count, message_count,
		       created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err == sql.ErrNoRows {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
		SELECT id, username, email, password_hashed, image_url, header_image_url,
		       bio, location, follower_count, following_count, message_count,
		       created_at, updated_at
		FROM users
		WHERE username = $1
	`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, username)
	if err == sql.ErrNoRows {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &user, nil
}

// List returns users ordered by username, optionally filtered by a
// case-insensitive username prefix.
func (r *userRepository) List(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	var users []model.UserSummary
	var err error

	if query == "" {
		err = r.db.SelectContext(ctx, &users, `
			SELECT id, username, image_url
			FROM users
			ORDER BY username
			LIMIT $1
		`, limit)
	} else {
		err = r.db.SelectContext(ctx, &users, `
			SELECT id, username, image_url
			FROM users
			WHERE username ILIKE $1 || '%'
			ORDER BY username
			LIMIT $2
		`, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	if users == nil {
		users = []model.UserSummary{}
	}
	return users, nil
}

// Update persists the mutable profile fields.
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, image_url = $3, header_image_url = $4,
		    bio = $5, location = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`
	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.Username, user.Email, user.ImageURL, user.HeaderImageURL,
		user.Bio, user.Location, user.ID)
	if err == sql.ErrNoRows {
		return model.ErrUserNotFound
	}
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Delete removes the user row. Messages, follows and likes cascade at the
// database level via ON DELETE CASCADE.
func (r *userRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// IncrementFollowerCount atomically updates follower_count inside a transaction.
func (r *userRepository) IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE users SET follower_count = follower_count + $1, updated_at = NOW() WHERE id = $2`,
		delta, userID)
	if err != nil {
		return fmt.Errorf("update follower count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// IncrementFollowingCount atomically updates following_count inside a transaction.
func (r *userRepository) IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE users SET following_count = following_count + $1, updated_at = NOW() WHERE id = $2`,
		delta, userID)
	if err != nil {
		return fmt.Errorf("update following count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
