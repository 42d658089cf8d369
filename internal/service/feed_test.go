package service

import (
	"context"
	"testing"

	"warbler/internal/cache"
	"warbler/internal/model"
)

// mockFeedCache keeps one in-memory feed per user.
type mockFeedCache struct {
	feeds     map[int64][]cache.MessageScore
	warmCalls int
}

func newMockFeedCache() *mockFeedCache {
	return &mockFeedCache{feeds: make(map[int64][]cache.MessageScore)}
}

func (m *mockFeedCache) AddMessage(ctx context.Context, userID, messageID int64, timestamp int64) error {
	m.feeds[userID] = append(m.feeds[userID], cache.MessageScore{MessageID: messageID, Timestamp: timestamp})
	return nil
}

func (m *mockFeedCache) RemoveMessage(ctx context.Context, userID, messageID int64) error {
	entries := m.feeds[userID]
	kept := entries[:0]
	for _, e := range entries {
		if e.MessageID != messageID {
			kept = append(kept, e)
		}
	}
	m.feeds[userID] = kept
	return nil
}

func (m *mockFeedCache) GetFeed(ctx context.Context, userID int64, cursorScore *float64, limit int) ([]int64, []float64, error) {
	var ids []int64
	var scores []float64
	for _, e := range m.feeds[userID] {
		if cursorScore != nil && float64(e.Timestamp) >= *cursorScore {
			continue
		}
		ids = append(ids, e.MessageID)
		scores = append(scores, float64(e.Timestamp))
		if len(ids) == limit {
			break
		}
	}
	return ids, scores, nil
}

func (m *mockFeedCache) WarmCache(ctx context.Context, userID int64, messages []cache.MessageScore) error {
	m.warmCalls++
	m.feeds[userID] = append(m.feeds[userID], messages...)
	return nil
}

func (m *mockFeedCache) Size(ctx context.Context, userID int64) (int64, error) {
	return int64(len(m.feeds[userID])), nil
}

func (m *mockFeedCache) Exists(ctx context.Context, userID int64) (bool, error) {
	_, ok := m.feeds[userID]
	return ok, nil
}

func TestFeedService_GetFeed_WarmsColdCache(t *testing.T) {
	feedCache := newMockFeedCache()
	messages := &mockMessageRepository{
		getByIDsFn: func(ctx context.Context, messageIDs []int64) ([]model.Message, error) {
			out := make([]model.Message, len(messageIDs))
			for i, id := range messageIDs {
				out[i] = model.Message{ID: id, UserID: 2, Text: "warble"}
			}
			return out, nil
		},
	}
	users := &mockUserRepository{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "bob"}, nil
		},
	}
	follows := &mockFollowRepository{}

	svc := NewFeedService(feedCache, messages, follows, users)

	// Cold cache: first read triggers a warm from the database path, even
	// though there is nothing to warm with here.
	resp, err := svc.GetFeed(context.Background(), 1, nil, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feedCache.warmCalls != 0 {
		// GetFeedMessageIDs returned nothing, so WarmCache is skipped
		t.Errorf("warm calls = %d, want 0 for an empty backfill", feedCache.warmCalls)
	}
	if len(resp.Messages) != 0 {
		t.Errorf("messages = %d, want empty feed", len(resp.Messages))
	}
}

func TestFeedService_GetFeed_HydratesFromCache(t *testing.T) {
	feedCache := newMockFeedCache()
	feedCache.feeds[1] = []cache.MessageScore{
		{MessageID: 30, Timestamp: 300},
		{MessageID: 20, Timestamp: 200},
		{MessageID: 10, Timestamp: 100},
	}

	messages := &mockMessageRepository{
		getByIDsFn: func(ctx context.Context, messageIDs []int64) ([]model.Message, error) {
			out := make([]model.Message, len(messageIDs))
			for i, id := range messageIDs {
				out[i] = model.Message{ID: id, UserID: 2, Text: "warble"}
			}
			return out, nil
		},
		checkLikesFn: func(ctx context.Context, userID int64, messageIDs []int64) (map[int64]bool, error) {
			return map[int64]bool{30: true}, nil
		},
	}
	users := &mockUserRepository{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "bob", ImageURL: "/b.png"}, nil
		},
	}
	follows := &mockFollowRepository{
		checkFollowsFn: func(ctx context.Context, followerID int64, targetIDs []int64) (map[int64]bool, error) {
			return map[int64]bool{2: true}, nil
		},
	}

	svc := NewFeedService(feedCache, messages, follows, users)

	resp, err := svc.GetFeed(context.Background(), 1, nil, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Messages) != 2 {
		t.Fatalf("messages = %d, want 2 (page limit)", len(resp.Messages))
	}
	if resp.Messages[0].ID != 30 || resp.Messages[1].ID != 20 {
		t.Errorf("order = [%d %d], want newest first [30 20]", resp.Messages[0].ID, resp.Messages[1].ID)
	}
	if resp.Messages[0].Author.Username != "bob" {
		t.Errorf("author = %q, want bob", resp.Messages[0].Author.Username)
	}
	if !resp.Messages[0].IsLiked || resp.Messages[1].IsLiked {
		t.Error("like status should come from the batch check")
	}
	if !resp.HasMore || resp.NextCursor == nil {
		t.Fatal("a full page should carry a next cursor")
	}

	// Next page via cursor excludes everything already seen
	next, err := svc.GetFeed(context.Background(), 1, resp.NextCursor, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next.Messages) != 1 || next.Messages[0].ID != 10 {
		t.Errorf("second page = %+v, want just message 10", next.Messages)
	}
}
