package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"shotzi/internal/cache"
	"shotzi/internal/model"
)

type mockMessageRepository struct {
	getGlobalRecentFn func(ctx context.Context, limit int) ([]model.GlobalMessage, error)
	getGlobalByIDsFn  func(ctx context.Context, ids []int64) ([]model.GlobalMessage, error)

	recentCalls int
	byIDsCalls  [][]int64
}

func (m *mockMessageRepository) CreateDirect(ctx context.Context, senderID, recipientID int64, text string) (*model.DirectMessage, error) {
	return &model.DirectMessage{ID: 1, SenderID: senderID, RecipientID: recipientID, Message: text}, nil
}

func (m *mockMessageRepository) GetConversation(ctx context.Context, userID, partnerID int64, limit int) ([]model.DirectMessage, error) {
	return nil, nil
}

func (m *mockMessageRepository) MarkConversationRead(ctx context.Context, viewerID, partnerID int64) error {
	return nil
}

func (m *mockMessageRepository) UnreadByPartner(ctx context.Context, viewerID int64) (map[int64]int, error) {
	return map[int64]int{}, nil
}

func (m *mockMessageRepository) UnreadFromPartner(ctx context.Context, viewerID, partnerID int64) (int, error) {
	return 0, nil
}

func (m *mockMessageRepository) PartnerIDs(ctx context.Context, viewerID int64) ([]int64, error) {
	return nil, nil
}

func (m *mockMessageRepository) LastMessage(ctx context.Context, userID, partnerID int64) (*model.DirectMessage, error) {
	return nil, nil
}

func (m *mockMessageRepository) DeleteDirect(ctx context.Context, messageID, userID int64) error {
	return nil
}

func (m *mockMessageRepository) CreateGlobal(ctx context.Context, userID int64, text string) (*model.GlobalMessage, error) {
	return &model.GlobalMessage{ID: 1, UserID: userID, Message: text, CreatedAt: time.Now()}, nil
}

func (m *mockMessageRepository) GetGlobalRecent(ctx context.Context, limit int) ([]model.GlobalMessage, error) {
	m.recentCalls++
	if m.getGlobalRecentFn != nil {
		return m.getGlobalRecentFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockMessageRepository) GetGlobalByIDs(ctx context.Context, ids []int64) ([]model.GlobalMessage, error) {
	m.byIDsCalls = append(m.byIDsCalls, ids)
	if m.getGlobalByIDsFn != nil {
		return m.getGlobalByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockMessageRepository) DeleteGlobal(ctx context.Context, messageID, userID int64) error {
	return nil
}

type mockChatCache struct {
	recentIDsFn func(ctx context.Context, limit int) ([]int64, error)

	addCalls  []int64
	warmCalls [][]cache.MessageScore
}

func (m *mockChatCache) AddMessage(ctx context.Context, messageID, timestamp int64) error {
	m.addCalls = append(m.addCalls, messageID)
	return nil
}

func (m *mockChatCache) RecentIDs(ctx context.Context, limit int) ([]int64, error) {
	if m.recentIDsFn != nil {
		return m.recentIDsFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockChatCache) WarmCache(ctx context.Context, messages []cache.MessageScore) error {
	m.warmCalls = append(m.warmCalls, messages)
	return nil
}

func (m *mockChatCache) Size(ctx context.Context) (int64, error) { return 0, nil }

func (m *mockChatCache) Exists(ctx context.Context) (bool, error) { return false, nil }

func TestMessagingService_GlobalHistory_ServedFromCache(t *testing.T) {
	repo := &mockMessageRepository{
		getGlobalByIDsFn: func(ctx context.Context, ids []int64) ([]model.GlobalMessage, error) {
			return []model.GlobalMessage{
				{ID: 1, UserID: 1, Message: "hi"},
				{ID: 2, UserID: 2, Message: "hey"},
			}, nil
		},
	}
	chatCache := &mockChatCache{
		recentIDsFn: func(ctx context.Context, limit int) ([]int64, error) {
			return []int64{1, 2}, nil
		},
	}
	svc := NewMessagingService(repo, chatCache, nil)

	messages, err := svc.GlobalHistory(context.Background())
	if err != nil {
		t.Fatalf("global history: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if len(repo.byIDsCalls) != 1 || len(repo.byIDsCalls[0]) != 2 {
		t.Errorf("byIDs calls = %v, want one call with the cached IDs", repo.byIDsCalls)
	}
	if repo.recentCalls != 0 {
		t.Errorf("recency scans = %d, want 0 (cache hit must skip the DB scan)", repo.recentCalls)
	}
}

func TestMessagingService_GlobalHistory_ColdCacheWarms(t *testing.T) {
	history := []model.GlobalMessage{
		{ID: 1, UserID: 1, Message: "hi", CreatedAt: time.Unix(100, 0)},
		{ID: 2, UserID: 2, Message: "hey", CreatedAt: time.Unix(200, 0)},
	}
	repo := &mockMessageRepository{
		getGlobalRecentFn: func(ctx context.Context, limit int) ([]model.GlobalMessage, error) {
			return history, nil
		},
	}
	chatCache := &mockChatCache{}
	svc := NewMessagingService(repo, chatCache, nil)

	messages, err := svc.GlobalHistory(context.Background())
	if err != nil {
		t.Fatalf("global history: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}

	if len(chatCache.warmCalls) != 1 {
		t.Fatalf("warm calls = %d, want 1", len(chatCache.warmCalls))
	}
	scores := chatCache.warmCalls[0]
	if len(scores) != 2 || scores[0].MessageID != 1 || scores[0].Timestamp != 100 {
		t.Errorf("warmed scores = %+v, want the loaded history", scores)
	}
}

func TestMessagingService_GlobalHistory_CacheErrorFallsBack(t *testing.T) {
	repo := &mockMessageRepository{
		getGlobalRecentFn: func(ctx context.Context, limit int) ([]model.GlobalMessage, error) {
			return []model.GlobalMessage{{ID: 7, UserID: 1, Message: "still here"}}, nil
		},
	}
	chatCache := &mockChatCache{
		recentIDsFn: func(ctx context.Context, limit int) ([]int64, error) {
			return nil, errors.New("redis down")
		},
	}
	svc := NewMessagingService(repo, chatCache, nil)

	messages, err := svc.GlobalHistory(context.Background())
	if err != nil {
		t.Fatalf("cache failure must not surface: %v", err)
	}
	if len(messages) != 1 || messages[0].ID != 7 {
		t.Errorf("messages = %+v, want the DB fallback result", messages)
	}
	if len(chatCache.warmCalls) != 0 {
		t.Error("a failing cache should not be warmed")
	}
}

func TestMessagingService_GlobalHistory_NoCache(t *testing.T) {
	repo := &mockMessageRepository{
		getGlobalRecentFn: func(ctx context.Context, limit int) ([]model.GlobalMessage, error) {
			if limit != model.ChatHistoryLimit {
				t.Errorf("limit = %d, want %d", limit, model.ChatHistoryLimit)
			}
			return nil, nil
		},
	}
	svc := NewMessagingService(repo, nil, nil)

	if _, err := svc.GlobalHistory(context.Background()); err != nil {
		t.Fatalf("global history: %v", err)
	}
	if repo.recentCalls != 1 {
		t.Errorf("recency scans = %d, want 1", repo.recentCalls)
	}
}
