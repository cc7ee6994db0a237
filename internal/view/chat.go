package view

import (
	"context"
	"fmt"
	"sync"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
	"shotzi/internal/optimistic"
)

// GlobalChatSession is the live state behind the shared chat room. The list
// is capped at the chat history limit; older messages fall off as new ones
// arrive.
type GlobalChatSession struct {
	session
	deps     Deps
	viewerID int64

	messages *optimistic.List[model.GlobalMessage]

	stateMu   sync.Mutex
	summaries map[int64]model.UserSummary
}

// OpenGlobalChat loads recent room history and attaches its subscription.
func OpenGlobalChat(ctx context.Context, deps Deps, viewerID int64) *GlobalChatSession {
	s := &GlobalChatSession{
		deps:      deps,
		viewerID:  viewerID,
		messages:  optimistic.NewList(func(m model.GlobalMessage) int64 { return m.ID }, model.ChatHistoryLimit),
		summaries: make(map[int64]model.UserSummary),
	}

	s.load(ctx)
	s.subscribe()
	return s
}

func (s *GlobalChatSession) load(ctx context.Context) {
	messages, err := s.deps.Messaging.GlobalHistory(ctx)
	if err != nil {
		s.fail(fmt.Errorf("load global chat: %w", err))
		return
	}
	s.messages.Seed(messages)

	userIDs := make([]int64, 0, len(messages))
	seen := make(map[int64]bool)
	for _, m := range messages {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			userIDs = append(userIDs, m.UserID)
		}
	}
	if summaries, err := s.deps.Users.GetSummaries(ctx, userIDs); err == nil {
		s.stateMu.Lock()
		s.summaries = summaries
		s.stateMu.Unlock()
	}
}

func (s *GlobalChatSession) subscribe() {
	s.track(s.deps.Feed.Subscribe(changefeed.TableGlobalMessages, nil).
		On(changefeed.KindInsert, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var msg model.GlobalMessage
			if err := ev.DecodeNew(&msg); err != nil {
				return
			}
			if !s.messages.Ingest(msg) {
				return
			}
			s.resolveSummary(context.Background(), msg.UserID)
		}).
		On(changefeed.KindDelete, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var msg model.GlobalMessage
			if err := ev.DecodeOld(&msg); err != nil {
				return
			}
			s.messages.Remove(msg.ID)
		}))
}

// resolveSummary fetches a sender's profile the first time they appear.
func (s *GlobalChatSession) resolveSummary(ctx context.Context, userID int64) {
	s.stateMu.Lock()
	_, known := s.summaries[userID]
	s.stateMu.Unlock()
	if known {
		return
	}

	if summaries, err := s.deps.Users.GetSummaries(ctx, []int64{userID}); err == nil {
		if sum, ok := summaries[userID]; ok {
			s.stateMu.Lock()
			s.summaries[userID] = sum
			s.stateMu.Unlock()
		}
	}
}

// Send delivers a room message optimistically.
func (s *GlobalChatSession) Send(ctx context.Context, text string) (string, error) {
	row := model.GlobalMessage{
		UserID:  s.viewerID,
		Message: text,
	}
	return s.messages.Perform(ctx, row, func(ctx context.Context) (model.GlobalMessage, error) {
		sent, err := s.deps.Messaging.SendGlobal(ctx, s.viewerID, text)
		if err != nil {
			return model.GlobalMessage{}, err
		}
		return *sent, nil
	})
}

// Retry re-attempts a failed send without duplicating the message.
func (s *GlobalChatSession) Retry(ctx context.Context, tempID string) error {
	return s.messages.Retry(ctx, tempID)
}

// Delete removes one of the viewer's own room messages.
func (s *GlobalChatSession) Delete(ctx context.Context, messageID int64) error {
	return s.deps.Messaging.DeleteGlobal(ctx, s.viewerID, messageID)
}

// Messages returns the room history in order, optimistic state included.
func (s *GlobalChatSession) Messages() []optimistic.Entry[model.GlobalMessage] {
	return s.messages.Snapshot()
}

// SenderName resolves the display name for a message sender.
func (s *GlobalChatSession) SenderName(userID int64) string {
	s.stateMu.Lock()
	sum := s.summaries[userID]
	s.stateMu.Unlock()
	return DisplayName(sum.Username, "", userID)
}
