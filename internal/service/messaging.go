package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"shotzi/internal/cache"
	"shotzi/internal/model"
	"shotzi/internal/relay"
	"shotzi/internal/repository"
)

// MessagingService covers direct messages and the global chat room.
// Sends wake the recipient's open views over the relay; global sends also
// maintain the capped chat cache.
type MessagingService struct {
	messageRepo repository.MessageRepository
	chatCache   cache.ChatCache
	relay       *relay.Relay
}

func NewMessagingService(messageRepo repository.MessageRepository, chatCache cache.ChatCache, r *relay.Relay) *MessagingService {
	return &MessagingService{
		messageRepo: messageRepo,
		chatCache:   chatCache,
		relay:       r,
	}
}

// SendDirect stores a private message and wakes the recipient.
func (s *MessagingService) SendDirect(ctx context.Context, senderID, recipientID int64, text string) (*model.DirectMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.ErrEmptyMessage
	}
	if len(text) > model.MaxMessageLength {
		return nil, model.ErrMessageTooLong
	}
	if senderID == recipientID {
		return nil, model.ErrCannotMessageSelf
	}

	msg, err := s.messageRepo.CreateDirect(ctx, senderID, recipientID, text)
	if err != nil {
		return nil, fmt.Errorf("send direct message: %w", err)
	}

	if s.relay != nil {
		s.relay.Publish(relay.Topic(relay.TopicMessages, recipientID), recipientID)
	}

	return msg, nil
}

// Conversation returns the message history with a partner, oldest first,
// capped at the chat history limit.
func (s *MessagingService) Conversation(ctx context.Context, viewerID, partnerID int64) ([]model.DirectMessage, error) {
	return s.messageRepo.GetConversation(ctx, viewerID, partnerID, model.ChatHistoryLimit)
}

// MarkConversationRead flips every unread message from the partner.
// Reads are final: there is no unread state to restore afterwards.
func (s *MessagingService) MarkConversationRead(ctx context.Context, viewerID, partnerID int64) error {
	return s.messageRepo.MarkConversationRead(ctx, viewerID, partnerID)
}

// DeleteDirect removes a direct message owned by userID.
func (s *MessagingService) DeleteDirect(ctx context.Context, userID, messageID int64) error {
	return s.messageRepo.DeleteDirect(ctx, messageID, userID)
}

// SendGlobal stores a global chat message, feeds the chat cache and wakes
// every open global-chat view (subject 0 is the shared room).
func (s *MessagingService) SendGlobal(ctx context.Context, userID int64, text string) (*model.GlobalMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.ErrEmptyMessage
	}
	if len(text) > model.MaxMessageLength {
		return nil, model.ErrMessageTooLong
	}

	msg, err := s.messageRepo.CreateGlobal(ctx, userID, text)
	if err != nil {
		return nil, fmt.Errorf("send global message: %w", err)
	}

	if s.chatCache != nil {
		if err := s.chatCache.AddMessage(ctx, msg.ID, msg.CreatedAt.Unix()); err != nil {
			log.Printf("[Messaging] chat cache add FAILED: message=%d err=%v", msg.ID, err)
		}
	}

	if s.relay != nil {
		// Subject 0 is the shared room
		s.relay.Publish(relay.Topic(relay.TopicMessages, 0), 0)
	}

	return msg, nil
}

// GlobalHistory returns the newest messages in the room, oldest first. The
// chat cache serves the ID window so the common path skips the recency scan;
// a cold or failing cache falls back to the database and re-warms.
func (s *MessagingService) GlobalHistory(ctx context.Context) ([]model.GlobalMessage, error) {
	if s.chatCache == nil {
		return s.messageRepo.GetGlobalRecent(ctx, model.ChatHistoryLimit)
	}

	ids, err := s.chatCache.RecentIDs(ctx, model.ChatHistoryLimit)
	if err != nil {
		log.Printf("[Messaging] chat cache read FAILED, falling back to DB: err=%v", err)
		return s.messageRepo.GetGlobalRecent(ctx, model.ChatHistoryLimit)
	}
	if len(ids) == 0 {
		return s.warmHistory(ctx)
	}

	messages, err := s.messageRepo.GetGlobalByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load global history: %w", err)
	}
	return messages, nil
}

// warmHistory loads history from the database on a cache miss and seeds the
// cache with it. A failed warm only costs the next reader the same miss.
func (s *MessagingService) warmHistory(ctx context.Context) ([]model.GlobalMessage, error) {
	messages, err := s.messageRepo.GetGlobalRecent(ctx, model.ChatHistoryLimit)
	if err != nil {
		return nil, err
	}

	scores := make([]cache.MessageScore, len(messages))
	for i, m := range messages {
		scores[i] = cache.MessageScore{MessageID: m.ID, Timestamp: m.CreatedAt.Unix()}
	}
	if err := s.chatCache.WarmCache(ctx, scores); err != nil {
		log.Printf("[Messaging] chat cache warm FAILED: messages=%d err=%v", len(messages), err)
	}
	return messages, nil
}

// DeleteGlobal removes a global chat message owned by userID.
func (s *MessagingService) DeleteGlobal(ctx context.Context, userID, messageID int64) error {
	return s.messageRepo.DeleteGlobal(ctx, messageID, userID)
}
