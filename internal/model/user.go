package model

import (
	"errors"
	"time"
)

// Default images applied when signup omits them.
const (
	DefaultImageURL       = "/static/images/default-pic.png"
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"
)

// User represents a registered user.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	Email          string    `db:"email" json:"email"`
	PasswordHashed string    `db:"password_hashed" json:"-"` // "-" hides from JSON output
	ImageURL       string    `db:"image_url" json:"image_url"`
	HeaderImageURL string    `db:"header_image_url" json:"header_image_url"`
	Bio            *string   `db:"bio" json:"bio"`
	Location       *string   `db:"location" json:"location"`
	FollowerCount  int       `db:"follower_count" json:"follower_count"`
	FollowingCount int       `db:"following_count" json:"following_count"`
	MessageCount   int       `db:"message_count" json:"message_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// UserSummary is the compact user shape embedded in lists and messages.
type UserSummary struct {
	ID          int64  `db:"id" json:"id"`
	Username    string `db:"username" json:"username"`
	ImageURL    string `db:"image_url" json:"image_url"`
	IsFollowing bool   `json:"is_following"`
}

// SignupRequest represents the data needed to create a new account.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	ImageURL string `json:"image_url"`
}

// LoginRequest represents the data needed to log in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileRequest carries a profile edit. Password must be the acting
// user's current password; the edit is refused without it.
type UpdateProfileRequest struct {
	Username       *string `json:"username"`
	Email          *string `json:"email"`
	ImageURL       *string `json:"image_url"`
	HeaderImageURL *string `json:"header_image_url"`
	Bio            *string `json:"bio"`
	Location       *string `json:"location"`
	Password       string  `json:"password"`
}

// ProfileResponse is returned by GET /users/{id}.
type ProfileResponse struct {
	User        *User     `json:"user"`
	IsFollowing bool      `json:"is_following"`
	Messages    []Message `json:"messages"`
}

// AuthResponse is returned after successful signup or login. The session
// cookie carries the web login; the access token serves non-cookie clients.
type AuthResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// UserListResponse is the response for GET /users.
type UserListResponse struct {
	Users []UserSummary `json:"users"`
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned when the username uniqueness constraint fires
	ErrUsernameTaken = errors.New("username already taken")

	// ErrEmailTaken is returned when the email uniqueness constraint fires
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidEmail is returned when the email fails format validation
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidCredentials is returned when login credentials are incorrect.
	// Unknown username and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
