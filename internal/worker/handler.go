package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"shotzi/internal/model"
	"shotzi/internal/queue"
	"shotzi/internal/relay"
)

// NotificationCreator defines the interface for creating notification rows.
// This abstracts the repository layer so workers don't depend on DB directly.
type NotificationCreator interface {
	Create(ctx context.Context, userID int64, message string) (*model.Notification, error)
}

// Waker pokes a recipient's open views after a notification lands.
type Waker interface {
	Publish(topic string, subjectID int64)
}

// Handler processes social events from the queue and turns them into
// notification rows plus a relay wake for the recipient.
type Handler struct {
	notifications NotificationCreator
	waker         Waker // Can be nil if relay not wired
}

// NewHandler creates a new event handler.
func NewHandler(notifications NotificationCreator) *Handler {
	return &Handler{notifications: notifications}
}

// SetWaker sets the relay used to wake recipients (optional).
func (h *Handler) SetWaker(w Waker) {
	h.waker = w
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.SocialEvent) error {
	startTime := time.Now()

	message, skip := renderMessage(event)
	if skip {
		log.Printf("[Worker] HandleEvent skipped: type=%s actor=%d recipient=%d",
			event.Type, event.ActorID, event.RecipientID)
		return nil
	}
	if message == "" {
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if _, err := h.notifications.Create(ctx, event.RecipientID, message); err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s recipient=%d duration=%v err=%v",
			event.Type, event.RecipientID, time.Since(startTime), err)
		return fmt.Errorf("create notification: %w", err)
	}

	if h.waker != nil {
		h.waker.Publish(relay.Topic(relay.TopicNotifications, event.RecipientID), event.RecipientID)
	}

	log.Printf("[Worker] HandleEvent OK: type=%s recipient=%d duration=%v",
		event.Type, event.RecipientID, time.Since(startTime))
	return nil
}

// renderMessage builds the notification text for an event.
// skip=true means the event deliberately produces no notification
// (a user acting on their own content).
func renderMessage(event queue.SocialEvent) (message string, skip bool) {
	// Self-actions never notify
	if event.ActorID != 0 && event.ActorID == event.RecipientID {
		return "", true
	}

	switch event.Type {
	case queue.EventPostLiked:
		return event.ActorName + " liked your post", false
	case queue.EventPostCommented:
		return event.ActorName + " commented on your post", false
	case queue.EventUserFollowed:
		return event.ActorName + " started following you", false
	case queue.EventPostApproved:
		return model.MsgPostApproved, false
	case queue.EventPostRejected:
		return model.MsgPostRejected, false
	default:
		return "", false
	}
}
