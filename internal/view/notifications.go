package view

import (
	"context"
	"fmt"
	"sync"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
	"shotzi/internal/reconcile"
	"shotzi/internal/relay"
)

// NotificationsSession is the live state behind the notification bell: the
// unread list and count for one viewer. Three paths keep it fresh and must
// stay idempotent against each other: the local mark-read commit, the relay
// wake from another tab, and the change-feed confirmation.
type NotificationsSession struct {
	session
	deps     Deps
	viewerID int64

	unread *reconcile.UnreadSet

	stateMu sync.Mutex
	items   []model.Notification
}

// OpenNotifications loads unread notifications and attaches the feed
// subscription and the relay listener for this viewer.
func OpenNotifications(ctx context.Context, deps Deps, viewerID int64) *NotificationsSession {
	s := &NotificationsSession{
		deps:     deps,
		viewerID: viewerID,
		unread:   reconcile.NewUnreadSet(),
	}

	s.load(ctx)
	s.subscribe()
	return s
}

func (s *NotificationsSession) load(ctx context.Context) {
	items, err := s.deps.Notifications.GetUnread(ctx, s.viewerID)
	if err != nil {
		s.fail(fmt.Errorf("load notifications: %w", err))
		return
	}

	ids := make([]int64, len(items))
	for i, n := range items {
		ids[i] = n.ID
	}
	s.unread.Seed(ids)

	s.stateMu.Lock()
	s.items = items
	s.stateMu.Unlock()
}

func (s *NotificationsSession) subscribe() {
	s.track(s.deps.Feed.Subscribe(changefeed.TableNotifications, changefeed.Eq("user_id", s.viewerID)).
		On(changefeed.KindInsert, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var n model.Notification
			if err := ev.DecodeNew(&n); err != nil || n.Read {
				return
			}
			s.unread.Add(n.ID)
			s.stateMu.Lock()
			s.items = append([]model.Notification{n}, s.items...)
			s.stateMu.Unlock()
		}).
		On(changefeed.KindUpdate, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var n model.Notification
			if err := ev.DecodeNew(&n); err != nil {
				return
			}
			if n.Read {
				s.drop(n.ID)
			}
		}))

	// Another tab created or read a notification: re-fetch instead of
	// trusting local state.
	s.trackCancel(s.deps.Relay.Subscribe(relay.Topic(relay.TopicNotifications, s.viewerID), func(relay.Payload) {
		if !s.active() {
			return
		}
		s.load(context.Background())
	}))
}

// drop removes a notification from both the set and the list.
func (s *NotificationsSession) drop(id int64) {
	s.unread.MarkRead(id)
	s.stateMu.Lock()
	for i, n := range s.items {
		if n.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.stateMu.Unlock()
}

// MarkRead flips one notification to read. The item leaves the unread view
// immediately; the write and the other-tab wake follow.
func (s *NotificationsSession) MarkRead(ctx context.Context, notificationID int64) error {
	s.drop(notificationID)

	if err := s.deps.Notifications.MarkAsRead(ctx, s.viewerID, notificationID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	s.deps.Relay.Publish(relay.Topic(relay.TopicNotifications, s.viewerID), s.viewerID)
	return nil
}

// Unread returns the current unread notifications, newest first.
func (s *NotificationsSession) Unread() []model.Notification {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	out := make([]model.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount returns the current unread count.
func (s *NotificationsSession) UnreadCount() int {
	return s.unread.Count()
}
