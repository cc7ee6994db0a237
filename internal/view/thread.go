package view

import (
	"context"
	"fmt"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
	"shotzi/internal/optimistic"
	"shotzi/internal/relay"
)

// ThreadSession is the live state behind one open direct-message
// conversation. Opening the thread marks it read; a message arriving from
// the partner while the thread is open is marked read immediately, since the
// viewer is looking at it.
type ThreadSession struct {
	session
	deps      Deps
	viewerID  int64
	partnerID int64

	messages *optimistic.List[model.DirectMessage]
}

// OpenThread loads the conversation, marks it read and attaches its
// subscriptions.
func OpenThread(ctx context.Context, deps Deps, viewerID, partnerID int64) *ThreadSession {
	s := &ThreadSession{
		deps:      deps,
		viewerID:  viewerID,
		partnerID: partnerID,
		messages:  optimistic.NewList(func(m model.DirectMessage) int64 { return m.ID }, model.ChatHistoryLimit),
	}

	s.load(ctx)
	s.subscribe()
	return s
}

func (s *ThreadSession) load(ctx context.Context) {
	messages, err := s.deps.Messaging.Conversation(ctx, s.viewerID, s.partnerID)
	if err != nil {
		s.fail(fmt.Errorf("load thread: %w", err))
		return
	}
	s.messages.Seed(messages)

	// Opening a thread is reading it
	if err := s.deps.Messaging.MarkConversationRead(ctx, s.viewerID, s.partnerID); err == nil {
		s.deps.Relay.Publish(relay.Topic(relay.TopicMessages, s.viewerID), s.viewerID)
	}
}

func (s *ThreadSession) subscribe() {
	// Exactly this conversation, both directions.
	filter := changefeed.Or(
		changefeed.And(
			changefeed.Eq("sender_id", s.viewerID),
			changefeed.Eq("recipient_id", s.partnerID),
		),
		changefeed.And(
			changefeed.Eq("sender_id", s.partnerID),
			changefeed.Eq("recipient_id", s.viewerID),
		),
	)
	s.track(s.deps.Feed.Subscribe(changefeed.TableDirectMessages, filter).
		On(changefeed.KindInsert, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var msg model.DirectMessage
			if err := ev.DecodeNew(&msg); err != nil {
				return
			}
			if !s.messages.Ingest(msg) {
				return
			}
			// The viewer has the thread open, so an incoming message is
			// read the moment it lands.
			if msg.SenderID == s.partnerID {
				ctx := context.Background()
				if err := s.deps.Messaging.MarkConversationRead(ctx, s.viewerID, s.partnerID); err == nil {
					s.deps.Relay.Publish(relay.Topic(relay.TopicMessages, s.viewerID), s.viewerID)
				}
			}
		}).
		On(changefeed.KindDelete, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var msg model.DirectMessage
			if err := ev.DecodeOld(&msg); err != nil {
				return
			}
			s.messages.Remove(msg.ID)
		}))
}

// Send delivers a message optimistically: it appears at the end of the
// thread as Pending and settles when the write returns.
func (s *ThreadSession) Send(ctx context.Context, text string) (string, error) {
	row := model.DirectMessage{
		SenderID:    s.viewerID,
		RecipientID: s.partnerID,
		Message:     text,
	}
	return s.messages.Perform(ctx, row, func(ctx context.Context) (model.DirectMessage, error) {
		sent, err := s.deps.Messaging.SendDirect(ctx, s.viewerID, s.partnerID, text)
		if err != nil {
			return model.DirectMessage{}, err
		}
		return *sent, nil
	})
}

// Retry re-attempts a failed send without duplicating the message.
func (s *ThreadSession) Retry(ctx context.Context, tempID string) error {
	return s.messages.Retry(ctx, tempID)
}

// Delete removes one of the viewer's own messages.
func (s *ThreadSession) Delete(ctx context.Context, messageID int64) error {
	return s.deps.Messaging.DeleteDirect(ctx, s.viewerID, messageID)
}

// Messages returns the thread entries in order, optimistic state included.
func (s *ThreadSession) Messages() []optimistic.Entry[model.DirectMessage] {
	return s.messages.Snapshot()
}
