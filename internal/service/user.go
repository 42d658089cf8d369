package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"warbler/internal/model"
	"warbler/internal/repository"
	"warbler/internal/session"
)

// ProfileMessageLimit is how many recent messages a profile view includes.
const ProfileMessageLimit = 20

// UserService handles business logic for user operations.
type UserService struct {
	repo        repository.UserRepository
	followRepo  repository.FollowRepository
	messageRepo repository.MessageRepository
	sessions    session.Store
}

func NewUserService(
	repo repository.UserRepository,
	followRepo repository.FollowRepository,
	messageRepo repository.MessageRepository,
	sessions session.Store,
) *UserService {
	return &UserService{
		repo:        repo,
		followRepo:  followRepo,
		messageRepo: messageRepo,
		sessions:    sessions,
	}
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetProfile returns a user's profile with their recent messages and, when a
// viewer is known, whether the viewer follows them.
func (s *UserService) GetProfile(ctx context.Context, userID int64, viewerID *int64) (*model.ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &model.ProfileResponse{
		User:     user,
		Messages: []model.Message{},
	}

	if viewerID != nil && *viewerID != userID {
		isFollowing, err := s.followRepo.Exists(ctx, *viewerID, userID)
		if err == nil {
			// A failed check degrades to "not following" rather than
			// failing the whole profile
			profile.IsFollowing = isFollowing
		}
	}

	messages, _, err := s.messageRepo.GetUserMessages(ctx, userID, nil, ProfileMessageLimit)
	if err != nil {
		return nil, err
	}
	if viewerID != nil {
		messages = enrichWithLikeStatus(ctx, s.messageRepo, *viewerID, messages)
	}
	profile.Messages = messages

	return profile, nil
}

// List returns users ordered by username, optionally filtered by a username
// prefix. Follow status is filled in for authenticated viewers.
func (s *UserService) List(ctx context.Context, query string, limit int, viewerID *int64) ([]model.UserSummary, error) {
	users, err := s.repo.List(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if viewerID != nil && len(users) > 0 {
		userIDs := make([]int64, len(users))
		for i, user := range users {
			userIDs[i] = user.ID
		}

		followMap, err := s.followRepo.CheckFollows(ctx, *viewerID, userIDs)
		if err == nil {
			for i := range users {
				users[i].IsFollowing = followMap[users[i].ID]
			}
		}
	}

	return users, nil
}

// UpdateProfile applies a profile edit after verifying the acting user's
// current password. Only fields present in the request change.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	if req.Username != nil {
		if strings.TrimSpace(*req.Username) == "" {
			return nil, fmt.Errorf("username is required")
		}
		user.Username = *req.Username
	}
	if req.Email != nil {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return nil, model.ErrInvalidEmail
		}
		user.Email = *req.Email
	}
	if req.ImageURL != nil {
		user.ImageURL = *req.ImageURL
	}
	if req.HeaderImageURL != nil {
		user.HeaderImageURL = *req.HeaderImageURL
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if req.Location != nil {
		user.Location = req.Location
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteAccount removes the user and closes all of their sessions. Messages,
// likes and follow edges cascade with the user row.
func (s *UserService) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	return s.sessions.DestroyAllForUser(ctx, userID)
}

// enrichWithLikeStatus batch-checks which messages the viewer has liked.
// One query with ANY($1), not one per message. A failed check degrades to
// is_liked=false.
func enrichWithLikeStatus(ctx context.Context, repo repository.MessageRepository, viewerID int64, messages []model.Message) []model.Message {
	if len(messages) == 0 {
		return messages
	}

	messageIDs := make([]int64, len(messages))
	for i, m := range messages {
		messageIDs[i] = m.ID
	}

	likeMap, err := repo.CheckLikes(ctx, viewerID, messageIDs)
	if err != nil {
		return messages
	}

	for i := range messages {
		messages[i].IsLiked = likeMap[messages[i].ID]
	}
	return messages
}
