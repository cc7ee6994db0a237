package view

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
	"shotzi/internal/reconcile"
	"shotzi/internal/relay"
)

// ConversationsSession is the live state behind the inbox: one row per
// partner with the last-message preview and the unread count. Unread counts
// are recomputed per conversation from rows, never patched, because mark-read
// flips many rows in one write.
type ConversationsSession struct {
	session
	deps     Deps
	viewerID int64

	unread *reconcile.Counters // keyed by partner ID

	stateMu   sync.Mutex
	partners  []int64
	previews  map[int64]*model.DirectMessage
	summaries map[int64]model.UserSummary
}

// OpenConversations loads the inbox and attaches its subscriptions.
func OpenConversations(ctx context.Context, deps Deps, viewerID int64) *ConversationsSession {
	s := &ConversationsSession{
		deps:      deps,
		viewerID:  viewerID,
		unread:    reconcile.NewCounters(),
		previews:  make(map[int64]*model.DirectMessage),
		summaries: make(map[int64]model.UserSummary),
	}

	s.load(ctx)
	s.subscribe()
	return s
}

func (s *ConversationsSession) load(ctx context.Context) {
	partners, err := s.deps.Messages.PartnerIDs(ctx, s.viewerID)
	if err != nil {
		s.fail(fmt.Errorf("load conversations: %w", err))
		return
	}

	if counts, err := s.deps.Messages.UnreadByPartner(ctx, s.viewerID); err == nil {
		s.unread.ReplaceAll(counts)
	} else {
		s.fail(fmt.Errorf("load unread counts: %w", err))
	}

	previews := make(map[int64]*model.DirectMessage, len(partners))
	for _, partnerID := range partners {
		if last, err := s.deps.Messages.LastMessage(ctx, s.viewerID, partnerID); err == nil {
			previews[partnerID] = last
		}
	}

	summaries := s.summaries
	if loaded, err := s.deps.Users.GetSummaries(ctx, partners); err == nil {
		summaries = loaded
	}

	s.stateMu.Lock()
	s.partners = partners
	s.previews = previews
	s.summaries = summaries
	s.stateMu.Unlock()
}

func (s *ConversationsSession) subscribe() {
	// Any message the viewer sent or received can change a preview or count.
	filter := changefeed.Or(
		changefeed.Eq("sender_id", s.viewerID),
		changefeed.Eq("recipient_id", s.viewerID),
	)
	s.track(s.deps.Feed.Subscribe(changefeed.TableDirectMessages, filter).
		On(changefeed.KindAll, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var msg model.DirectMessage
			if err := json.Unmarshal(ev.Row(), &msg); err != nil {
				return
			}
			partnerID := msg.SenderID
			if partnerID == s.viewerID {
				partnerID = msg.RecipientID
			}
			s.refreshConversation(context.Background(), partnerID)
		}))

	// Another tab read or received messages: reload the whole inbox.
	s.trackCancel(s.deps.Relay.Subscribe(relay.Topic(relay.TopicMessages, s.viewerID), func(relay.Payload) {
		if !s.active() {
			return
		}
		s.load(context.Background())
	}))
}

// refreshConversation recomputes one conversation's unread count and preview,
// adding the partner when it's a brand-new conversation.
func (s *ConversationsSession) refreshConversation(ctx context.Context, partnerID int64) {
	if count, err := s.deps.Messages.UnreadFromPartner(ctx, s.viewerID, partnerID); err == nil {
		s.unread.Replace(partnerID, count)
	}
	last, err := s.deps.Messages.LastMessage(ctx, s.viewerID, partnerID)
	if err != nil {
		return
	}

	s.stateMu.Lock()
	s.previews[partnerID] = last
	known := false
	for _, id := range s.partners {
		if id == partnerID {
			known = true
			break
		}
	}
	if !known {
		s.partners = append(s.partners, partnerID)
	}
	_, haveSummary := s.summaries[partnerID]
	s.stateMu.Unlock()

	if !haveSummary {
		if summaries, err := s.deps.Users.GetSummaries(ctx, []int64{partnerID}); err == nil {
			if sum, ok := summaries[partnerID]; ok {
				s.stateMu.Lock()
				s.summaries[partnerID] = sum
				s.stateMu.Unlock()
			}
		}
	}
}

// Conversations returns the inbox rows, newest activity first.
func (s *ConversationsSession) Conversations() []model.Conversation {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	out := make([]model.Conversation, 0, len(s.partners))
	for _, partnerID := range s.partners {
		conv := model.Conversation{
			Partner:     s.summaries[partnerID],
			UnreadCount: s.unread.Get(partnerID),
		}
		if conv.Partner.ID == 0 {
			conv.Partner.ID = partnerID
		}
		if last := s.previews[partnerID]; last != nil {
			conv.LastMessage = last.Message
			t := last.CreatedAt
			conv.LastMessageTime = &t
		}
		out = append(out, conv)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].LastMessageTime, out[j].LastMessageTime
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	return out
}

// TotalUnread returns the unread message count across all conversations.
func (s *ConversationsSession) TotalUnread() int {
	total := 0
	for _, n := range s.unread.Snapshot() {
		total += n
	}
	return total
}
