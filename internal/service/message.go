package service

import (
	"context"
	"log"
	"strings"

	"warbler/internal/model"
	"warbler/internal/queue"
	"warbler/internal/repository"
)

// MessageService handles business logic for messages and likes.
type MessageService struct {
	repo      repository.MessageRepository
	userRepo  repository.UserRepository
	publisher queue.Publisher
}

func NewMessageService(
	repo repository.MessageRepository,
	userRepo repository.UserRepository,
	publisher queue.Publisher,
) *MessageService {
	return &MessageService{
		repo:      repo,
		userRepo:  userRepo,
		publisher: publisher,
	}
}

// Create stores a new message and publishes the fan-out event. The 140-char
// bound is enforced by the text column; overlong writes surface as
// ErrTextTooLong from the repository.
func (s *MessageService) Create(ctx context.Context, userID int64, req *model.CreateMessageRequest) (*model.Message, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, model.ErrTextRequired
	}

	message, err := s.repo.Create(ctx, userID, req.Text)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		event := queue.NewMessageCreatedEvent(message.ID, userID)
		if _, err := s.publisher.Publish(ctx, queue.StreamFeed, event); err != nil {
			log.Printf("[MessageService] Failed to publish MessageCreated: message=%d err=%v", message.ID, err)
		}
	}

	return message, nil
}

// GetByID returns a message with its author attached and, for authenticated
// viewers, whether they have liked it.
func (s *MessageService) GetByID(ctx context.Context, messageID int64, viewerID *int64) (*model.Message, error) {
	message, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if author, err := s.userRepo.GetByID(ctx, message.UserID); err == nil {
		message.Author = &model.UserSummary{
			ID:       author.ID,
			Username: author.Username,
			ImageURL: author.ImageURL,
		}
	}

	if viewerID != nil {
		likeMap, err := s.repo.CheckLikes(ctx, *viewerID, []int64{messageID})
		if err == nil {
			message.IsLiked = likeMap[messageID]
		}
	}

	return message, nil
}

// Delete removes a message the user owns and publishes the removal event.
// Non-owners get ErrNotMessageOwner and the row stays put.
func (s *MessageService) Delete(ctx context.Context, messageID, userID int64) error {
	if err := s.repo.Delete(ctx, messageID, userID); err != nil {
		return err
	}

	if s.publisher != nil {
		event := queue.NewMessageDeletedEvent(messageID, userID)
		if _, err := s.publisher.Publish(ctx, queue.StreamFeed, event); err != nil {
			log.Printf("[MessageService] Failed to publish MessageDeleted: message=%d err=%v", messageID, err)
		}
	}

	return nil
}

// ToggleLike flips the viewer's like on a message. Liking an already-liked
// message removes the like; the response reports which way it went.
func (s *MessageService) ToggleLike(ctx context.Context, messageID, userID int64) (*model.ToggleLikeResponse, error) {
	liked, likeCount, err := s.repo.ToggleLike(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}

	return &model.ToggleLikeResponse{
		Liked:     liked,
		LikeCount: likeCount,
	}, nil
}

// GetUserMessages returns a user's messages newest first.
func (s *MessageService) GetUserMessages(ctx context.Context, userID int64, cursor *string, limit int, viewerID *int64) (*model.MessageListResponse, error) {
	if exists, err := s.userRepo.Exists(ctx, userID); err != nil {
		return nil, err
	} else if !exists {
		return nil, model.ErrUserNotFound
	}

	messages, nextCursor, err := s.repo.GetUserMessages(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}

	if viewerID != nil {
		messages = enrichWithLikeStatus(ctx, s.repo, *viewerID, messages)
	}

	return buildMessageListResponse(messages, nextCursor), nil
}

// GetLikedMessages returns the messages a user has liked, most recently
// liked first.
func (s *MessageService) GetLikedMessages(ctx context.Context, userID int64, cursor *string, limit int, viewerID *int64) (*model.MessageListResponse, error) {
	if exists, err := s.userRepo.Exists(ctx, userID); err != nil {
		return nil, err
	} else if !exists {
		return nil, model.ErrUserNotFound
	}

	messages, nextCursor, err := s.repo.GetLikedMessages(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}

	if viewerID != nil {
		messages = enrichWithLikeStatus(ctx, s.repo, *viewerID, messages)
	}

	return buildMessageListResponse(messages, nextCursor), nil
}

func buildMessageListResponse(messages []model.Message, nextCursor *string) *model.MessageListResponse {
	if messages == nil {
		messages = []model.Message{}
	}
	return &model.MessageListResponse{
		Messages:   messages,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}
}
