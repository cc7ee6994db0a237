package view

import (
	"context"
	"sync"
	"testing"
	"time"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
	"shotzi/internal/relay"
)

// mockNotificationRepo is a stateful in-memory stand-in: MarkAsRead mutates
// the backing slice so a relay-triggered reload observes the new state.
type mockNotificationRepo struct {
	mu        sync.Mutex
	items     []model.Notification
	markCalls [][2]int64 // (userID, notificationID)
}

func (m *mockNotificationRepo) Create(ctx context.Context, userID int64, message string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := model.Notification{ID: int64(len(m.items) + 1), UserID: userID, Message: message}
	m.items = append(m.items, n)
	return &n, nil
}

func (m *mockNotificationRepo) GetUnread(ctx context.Context, userID int64) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.items {
		if n.UserID == userID && !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkAsRead(ctx context.Context, userID, notificationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markCalls = append(m.markCalls, [2]int64{userID, notificationID})
	for i := range m.items {
		if m.items[i].ID == notificationID && m.items[i].UserID == userID {
			m.items[i].Read = true
		}
	}
	return nil
}

func (m *mockNotificationRepo) UnreadCount(ctx context.Context, userID int64) (int, error) {
	unread, _ := m.GetUnread(ctx, userID)
	return len(unread), nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func notificationDeps(repo *mockNotificationRepo) (Deps, *changefeed.Bus) {
	bus := changefeed.NewBus()
	return Deps{
		Notifications: repo,
		Feed:          changefeed.NewManager(bus),
		Relay:         relay.New(nil),
	}, bus
}

func publishNotification(t *testing.T, bus *changefeed.Bus, kind changefeed.Kind, n model.Notification) {
	t.Helper()
	ev, err := changefeed.NewEvent(changefeed.TableNotifications, kind, n, nil)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	if err := bus.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestNotificationsSession_SeedsFromBulkLoad(t *testing.T) {
	repo := &mockNotificationRepo{items: []model.Notification{
		{ID: 1, UserID: 1, Message: "a liked your post"},
		{ID: 2, UserID: 1, Message: "b started following you"},
		{ID: 3, UserID: 2, Message: "other viewer's row"},
	}}
	deps, _ := notificationDeps(repo)

	s := OpenNotifications(context.Background(), deps, 1)
	defer s.Close()

	if err := s.Err(); err != nil {
		t.Fatalf("session error: %v", err)
	}
	if got := s.UnreadCount(); got != 2 {
		t.Errorf("UnreadCount = %d, want 2", got)
	}
	if got := len(s.Unread()); got != 2 {
		t.Errorf("items = %d, want 2", got)
	}
}

func TestNotificationsSession_FeedInsertPrepends(t *testing.T) {
	repo := &mockNotificationRepo{items: []model.Notification{
		{ID: 1, UserID: 1, Message: "old"},
	}}
	deps, bus := notificationDeps(repo)

	s := OpenNotifications(context.Background(), deps, 1)
	defer s.Close()

	publishNotification(t, bus, changefeed.KindInsert, model.Notification{ID: 2, UserID: 1, Message: "new"})

	waitFor(t, "feed insert", func() bool { return s.UnreadCount() == 2 })
	if items := s.Unread(); items[0].ID != 2 {
		t.Errorf("first item = %d, want the newest notification", items[0].ID)
	}
}

func TestNotificationsSession_OtherViewersRowsFiltered(t *testing.T) {
	repo := &mockNotificationRepo{}
	deps, bus := notificationDeps(repo)

	s := OpenNotifications(context.Background(), deps, 1)
	defer s.Close()

	publishNotification(t, bus, changefeed.KindInsert, model.Notification{ID: 9, UserID: 2, Message: "not yours"})
	// Deliver a row that IS the viewer's afterwards; once it lands we know
	// the earlier foreign row was dropped, not still in flight.
	publishNotification(t, bus, changefeed.KindInsert, model.Notification{ID: 10, UserID: 1, Message: "yours"})

	waitFor(t, "own row", func() bool { return s.UnreadCount() == 1 })
	if items := s.Unread(); items[0].ID != 10 {
		t.Errorf("item = %d, want 10", items[0].ID)
	}
}

func TestNotificationsSession_MarkReadDropsImmediately(t *testing.T) {
	repo := &mockNotificationRepo{items: []model.Notification{
		{ID: 1, UserID: 1, Message: "a"},
		{ID: 2, UserID: 1, Message: "b"},
	}}
	deps, _ := notificationDeps(repo)

	s := OpenNotifications(context.Background(), deps, 1)
	defer s.Close()

	if err := s.MarkRead(context.Background(), 1); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	if got := s.UnreadCount(); got != 1 {
		t.Errorf("UnreadCount = %d, want 1", got)
	}
	repo.mu.Lock()
	calls := repo.markCalls
	repo.mu.Unlock()
	if len(calls) != 1 || calls[0] != [2]int64{1, 1} {
		t.Errorf("markCalls = %v, want one call for viewer 1 notification 1", calls)
	}
	// Marking the same item again stays a no-op on the local state.
	if err := s.MarkRead(context.Background(), 1); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if got := s.UnreadCount(); got != 1 {
		t.Errorf("UnreadCount after repeat = %d, want 1", got)
	}
}

func TestNotificationsSession_RelayWakeReloads(t *testing.T) {
	repo := &mockNotificationRepo{items: []model.Notification{
		{ID: 1, UserID: 1, Message: "a"},
	}}
	deps, _ := notificationDeps(repo)

	s := OpenNotifications(context.Background(), deps, 1)
	defer s.Close()

	// Another tab marks the row read and broadcasts; this session re-fetches.
	if err := repo.MarkAsRead(context.Background(), 1, 1); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	deps.Relay.Publish(relay.Topic(relay.TopicNotifications, 1), 1)

	if got := s.UnreadCount(); got != 0 {
		t.Errorf("UnreadCount after wake = %d, want 0", got)
	}
}

func TestNotificationsSession_ReadUpdateDropsItem(t *testing.T) {
	repo := &mockNotificationRepo{items: []model.Notification{
		{ID: 1, UserID: 1, Message: "a"},
		{ID: 2, UserID: 1, Message: "b"},
	}}
	deps, bus := notificationDeps(repo)

	s := OpenNotifications(context.Background(), deps, 1)
	defer s.Close()

	publishNotification(t, bus, changefeed.KindUpdate, model.Notification{ID: 1, UserID: 1, Read: true})

	waitFor(t, "read confirmation", func() bool { return s.UnreadCount() == 1 })
	if items := s.Unread(); items[0].ID != 2 {
		t.Errorf("remaining item = %d, want 2", items[0].ID)
	}
}

func TestNotificationsSession_CloseDropsLateEvents(t *testing.T) {
	repo := &mockNotificationRepo{}
	deps, bus := notificationDeps(repo)

	s := OpenNotifications(context.Background(), deps, 1)
	s.Close()

	publishNotification(t, bus, changefeed.KindInsert, model.Notification{ID: 1, UserID: 1, Message: "late"})

	time.Sleep(50 * time.Millisecond)
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("UnreadCount after close = %d, want 0", got)
	}
}
