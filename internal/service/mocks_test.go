package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"warbler/internal/cache"
	"warbler/internal/model"
	"warbler/internal/queue"
	"warbler/internal/session"
)

// Function-field mocks: each test overrides just the calls it cares about.
// Everything the services touch is an interface, so no database or Redis is
// needed here.

type mockUserRepository struct {
	createFn        func(ctx context.Context, user *model.User) error
	getByIDFn       func(ctx context.Context, id int64) (*model.User, error)
	getByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	listFn          func(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
	updateFn        func(ctx context.Context, user *model.User) error
	deleteFn        func(ctx context.Context, id int64) error
	existsFn        func(ctx context.Context, id int64) (bool, error)

	createCalls []*model.User
	deleteCalls []int64
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls = append(m.createCalls, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) List(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	if m.listFn != nil {
		return m.listFn(ctx, query, limit)
	}
	return []model.UserSummary{}, nil
}

func (m *mockUserRepository) Update(ctx context.Context, user *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id int64) error {
	m.deleteCalls = append(m.deleteCalls, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return true, nil
}

func (m *mockUserRepository) IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	return nil
}

func (m *mockUserRepository) IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	return nil
}

type mockMessageRepository struct {
	createFn           func(ctx context.Context, userID int64, text string) (*model.Message, error)
	getByIDFn          func(ctx context.Context, messageID int64) (*model.Message, error)
	getByIDsFn         func(ctx context.Context, messageIDs []int64) ([]model.Message, error)
	deleteFn           func(ctx context.Context, messageID, userID int64) error
	toggleLikeFn       func(ctx context.Context, messageID, userID int64) (bool, int, error)
	checkLikesFn       func(ctx context.Context, userID int64, messageIDs []int64) (map[int64]bool, error)
	getUserMessagesFn  func(ctx context.Context, userID int64, cursor *string, limit int) ([]model.Message, *string, error)
	getLikedMessagesFn func(ctx context.Context, userID int64, cursor *string, limit int) ([]model.Message, *string, error)
}

func (m *mockMessageRepository) Create(ctx context.Context, userID int64, text string) (*model.Message, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, text)
	}
	return &model.Message{ID: 1, UserID: userID, Text: text, CreatedAt: time.Now()}, nil
}

func (m *mockMessageRepository) GetByID(ctx context.Context, messageID int64) (*model.Message, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, messageID)
	}
	return nil, model.ErrMessageNotFound
}

func (m *mockMessageRepository) GetByIDs(ctx context.Context, messageIDs []int64) ([]model.Message, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, messageIDs)
	}
	return []model.Message{}, nil
}

func (m *mockMessageRepository) Delete(ctx context.Context, messageID, userID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, messageID, userID)
	}
	return nil
}

func (m *mockMessageRepository) GetUserMessages(ctx context.Context, userID int64, cursor *string, limit int) ([]model.Message, *string, error) {
	if m.getUserMessagesFn != nil {
		return m.getUserMessagesFn(ctx, userID, cursor, limit)
	}
	return []model.Message{}, nil, nil
}

func (m *mockMessageRepository) ToggleLike(ctx context.Context, messageID, userID int64) (bool, int, error) {
	if m.toggleLikeFn != nil {
		return m.toggleLikeFn(ctx, messageID, userID)
	}
	return false, 0, model.ErrMessageNotFound
}

func (m *mockMessageRepository) CheckLikes(ctx context.Context, userID int64, messageIDs []int64) (map[int64]bool, error) {
	if m.checkLikesFn != nil {
		return m.checkLikesFn(ctx, userID, messageIDs)
	}
	result := make(map[int64]bool, len(messageIDs))
	for _, id := range messageIDs {
		result[id] = false
	}
	return result, nil
}

func (m *mockMessageRepository) GetLikedMessages(ctx context.Context, userID int64, cursor *string, limit int) ([]model.Message, *string, error) {
	if m.getLikedMessagesFn != nil {
		return m.getLikedMessagesFn(ctx, userID, cursor, limit)
	}
	return []model.Message{}, nil, nil
}

func (m *mockMessageRepository) GetRecentMessagesByUser(ctx context.Context, userID int64, limit int) ([]cache.MessageScore, error) {
	return []cache.MessageScore{}, nil
}

func (m *mockMessageRepository) GetFeedMessageIDs(ctx context.Context, followeeIDs []int64, limit int) ([]cache.MessageScore, error) {
	return []cache.MessageScore{}, nil
}

type mockFollowRepository struct {
	existsFn       func(ctx context.Context, followerID, followeeID int64) (bool, error)
	checkFollowsFn func(ctx context.Context, followerID int64, targetIDs []int64) (map[int64]bool, error)
	getFollowersFn func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	getFollowingFn func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
}

func (m *mockFollowRepository) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	return true, nil
}

func (m *mockFollowRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error {
	return nil
}

func (m *mockFollowRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, followerID, followeeID)
	}
	return false, nil
}

func (m *mockFollowRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	if m.getFollowersFn != nil {
		return m.getFollowersFn(ctx, userID, cursor, limit)
	}
	return []model.UserSummary{}, nil, nil
}

func (m *mockFollowRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	if m.getFollowingFn != nil {
		return m.getFollowingFn(ctx, userID, cursor, limit)
	}
	return []model.UserSummary{}, nil, nil
}

func (m *mockFollowRepository) CheckFollows(ctx context.Context, followerID int64, targetIDs []int64) (map[int64]bool, error) {
	if m.checkFollowsFn != nil {
		return m.checkFollowsFn(ctx, followerID, targetIDs)
	}
	result := make(map[int64]bool, len(targetIDs))
	for _, id := range targetIDs {
		result[id] = false
	}
	return result, nil
}

func (m *mockFollowRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	return []int64{}, nil
}

func (m *mockFollowRepository) GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	return []int64{}, nil
}

// mockSessionStore records sessions in memory.
type mockSessionStore struct {
	nextID    int
	sessions  map[string]int64
	destroyed []string
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]int64)}
}

func (m *mockSessionStore) Create(ctx context.Context, userID int64) (string, error) {
	m.nextID++
	id := string(rune('a' + m.nextID))
	m.sessions[id] = userID
	return id, nil
}

func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (int64, error) {
	if userID, ok := m.sessions[sessionID]; ok {
		return userID, nil
	}
	return 0, session.ErrSessionNotFound
}

func (m *mockSessionStore) Destroy(ctx context.Context, sessionID string) error {
	delete(m.sessions, sessionID)
	m.destroyed = append(m.destroyed, sessionID)
	return nil
}

func (m *mockSessionStore) DestroyAllForUser(ctx context.Context, userID int64) error {
	for id, uid := range m.sessions {
		if uid == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

// mockPublisher records published events.
type mockPublisher struct {
	events []queue.FeedEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.FeedEvent) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.events = append(m.events, event)
	return "1-0", nil
}
