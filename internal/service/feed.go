package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"warbler/internal/cache"
	"warbler/internal/model"
	"warbler/internal/repository"
)

const (
	// FeedDefaultLimit is the default number of messages per page
	FeedDefaultLimit = 20

	// FeedMaxLimit is the maximum number of messages per page
	FeedMaxLimit = 50

	// CacheWarmLimit is the most messages fetched when warming a cold cache
	CacheWarmLimit = 500
)

// FeedService serves the home timeline: messages from followed users plus
// the user's own, newest first.
type FeedService struct {
	feedCache   cache.FeedCache
	messageRepo repository.MessageRepository
	followRepo  repository.FollowRepository
	userRepo    repository.UserRepository
}

func NewFeedService(
	feedCache cache.FeedCache,
	messageRepo repository.MessageRepository,
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
) *FeedService {
	return &FeedService{
		feedCache:   feedCache,
		messageRepo: messageRepo,
		followRepo:  followRepo,
		userRepo:    userRepo,
	}
}

// GetFeed reads the timeline from the cache, warming it from the database on
// a cold start, then hydrates the cached ids into full messages.
func (s *FeedService) GetFeed(ctx context.Context, userID int64, cursor *string, limit int) (*model.FeedResponse, error) {
	if limit <= 0 {
		limit = FeedDefaultLimit
	}
	if limit > FeedMaxLimit {
		limit = FeedMaxLimit
	}

	exists, err := s.feedCache.Exists(ctx, userID)
	if err != nil {
		log.Printf("[FeedService] Cache check failed for user=%d: %v", userID, err)
	}
	if !exists {
		if err := s.warmCache(ctx, userID); err != nil {
			log.Printf("[FeedService] Cache warm failed for user=%d: %v", userID, err)
		}
	}

	var cursorScore *float64
	if cursor != nil {
		score, _, err := parseFeedCursor(*cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		cursorScore = &score
	}

	messageIDs, scores, err := s.feedCache.GetFeed(ctx, userID, cursorScore, limit)
	if err != nil {
		return nil, fmt.Errorf("get feed from cache: %w", err)
	}

	if len(messageIDs) == 0 {
		return &model.FeedResponse{Messages: []model.FeedMessage{}}, nil
	}

	messages, err := s.hydrateMessages(ctx, userID, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("hydrate messages: %w", err)
	}

	var nextCursor *string
	hasMore := len(messageIDs) == limit
	if hasMore && len(scores) > 0 {
		c := formatFeedCursor(scores[len(scores)-1], messageIDs[len(messageIDs)-1])
		nextCursor = &c
	}

	return &model.FeedResponse{
		Messages:   messages,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// warmCache rebuilds the user's feed cache from the database.
func (s *FeedService) warmCache(ctx context.Context, userID int64) error {
	followeeIDs, err := s.followRepo.GetFolloweeIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("get followee ids: %w", err)
	}

	// Users see their own messages in their feed
	followeeIDs = append(followeeIDs, userID)

	messages, err := s.messageRepo.GetFeedMessageIDs(ctx, followeeIDs, CacheWarmLimit)
	if err != nil {
		return fmt.Errorf("get feed message ids: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	return s.feedCache.WarmCache(ctx, userID, messages)
}

// hydrateMessages loads the cached ids as full messages with authors and the
// viewer's like status. Ids whose rows have since been deleted drop out.
func (s *FeedService) hydrateMessages(ctx context.Context, viewerID int64, messageIDs []int64) ([]model.FeedMessage, error) {
	messages, err := s.messageRepo.GetByIDs(ctx, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("get messages by ids: %w", err)
	}

	authorIDSet := make(map[int64]struct{})
	for _, m := range messages {
		authorIDSet[m.UserID] = struct{}{}
	}
	authorIDs := make([]int64, 0, len(authorIDSet))
	for id := range authorIDSet {
		authorIDs = append(authorIDs, id)
	}

	authors := make(map[int64]model.UserSummary)
	for _, authorID := range authorIDs {
		user, err := s.userRepo.GetByID(ctx, authorID)
		if err != nil {
			log.Printf("[FeedService] Failed to get author %d: %v", authorID, err)
			continue
		}
		authors[authorID] = model.UserSummary{
			ID:       user.ID,
			Username: user.Username,
			ImageURL: user.ImageURL,
		}
	}

	followStatus, err := s.followRepo.CheckFollows(ctx, viewerID, authorIDs)
	if err != nil {
		log.Printf("[FeedService] Failed to check follows: %v", err)
	}

	likeStatus, err := s.messageRepo.CheckLikes(ctx, viewerID, messageIDs)
	if err != nil {
		log.Printf("[FeedService] Failed to check likes: %v", err)
	}

	feedMessages := make([]model.FeedMessage, len(messages))
	for i, m := range messages {
		author := authors[m.UserID]
		if followStatus != nil {
			author.IsFollowing = followStatus[m.UserID]
		}
		if likeStatus != nil {
			m.IsLiked = likeStatus[m.ID]
		}
		feedMessages[i] = model.FeedMessage{
			Message: m,
			Author:  author,
		}
	}

	return feedMessages, nil
}

// parseFeedCursor parses an "id:timestamp" cursor into score and message id.
func parseFeedCursor(cursor string) (float64, int64, error) {
	parts := strings.Split(cursor, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid cursor format, expected id:timestamp")
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid message id in cursor: %w", err)
	}

	score, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timestamp in cursor: %w", err)
	}

	return score, id, nil
}

func formatFeedCursor(score float64, id int64) string {
	return fmt.Sprintf("%d:%.0f", id, score)
}
