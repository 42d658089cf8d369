package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"warbler/internal/config"
	"warbler/internal/model"
	"warbler/internal/repository"
	"warbler/internal/session"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// AuthService handles signup, login and session lifecycle. Web clients get
// a server-side session; the access token serves non-cookie API clients.
type AuthService struct {
	userRepo repository.UserRepository
	sessions session.Store
	config   *config.Config
}

func NewAuthService(userRepo repository.UserRepository, sessions session.Store, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sessions: sessions,
		config:   cfg,
	}
}

// Signup validates the request, creates the account and opens a session.
func (s *AuthService) Signup(ctx context.Context, req *model.SignupRequest) (*model.AuthResponse, string, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, "", fmt.Errorf("username is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, "", model.ErrInvalidEmail
	}
	if len(req.Password) < MinPasswordLength {
		return nil, "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:       req.Username,
		Email:          req.Email,
		PasswordHashed: string(hashedPassword),
		ImageURL:       req.ImageURL,
		HeaderImageURL: model.DefaultHeaderImageURL,
	}
	if user.ImageURL == "" {
		user.ImageURL = model.DefaultImageURL
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	return s.openSession(ctx, user)
}

// Login authenticates the credentials and opens a session. Unknown username
// and wrong password both come back as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, string, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, "", model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, "", model.ErrInvalidCredentials
	}

	return s.openSession(ctx, user)
}

// Logout closes the session. A missing or expired session is not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Destroy(ctx, sessionID)
}

func (s *AuthService) openSession(ctx context.Context, user *model.User) (*model.AuthResponse, string, error) {
	sessionID, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	accessToken, err := s.generateAccessToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("generate access token: %w", err)
	}

	return &model.AuthResponse{
		User:        user,
		AccessToken: accessToken,
		ExpiresIn:   s.config.AccessTokenMaxAge,
	}, sessionID, nil
}

func (s *AuthService) generateAccessToken(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}
