package repository

import (
	"context"
	"fmt"

	"shotzi/internal/model"
	"shotzi/internal/store"
)

type notificationRepository struct {
	store *store.Store
}

func NewNotificationRepository(s *store.Store) NotificationRepository {
	return &notificationRepository{store: s}
}

func (r *notificationRepository) Create(ctx context.Context, userID int64, message string) (*model.Notification, error) {
	var n model.Notification
	err := r.store.Insert(ctx, "notifications", map[string]any{
		"user_id": userID,
		"message": message,
		"read":    false,
	}, &n)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) GetUnread(ctx context.Context, userID int64) ([]model.Notification, error) {
	notifications := []model.Notification{}
	q := store.From("notifications").
		Eq("user_id", userID).
		Eq("read", false).
		OrderBy("created_at", store.Desc)
	if err := r.store.Select(ctx, q, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkAsRead flips the read flag. The user_id filter doubles as the ownership
// check; rows of other users are untouched. The update event carries the row
// with read already true so subscribed views drop it from their unread state.
func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, notificationID int64) error {
	newRow := map[string]any{
		"id":      notificationID,
		"user_id": userID,
		"read":    true,
	}
	return r.store.Update(ctx, "notifications",
		map[string]any{"read": true},
		map[string]any{"id": notificationID, "user_id": userID},
		newRow)
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return r.store.Count(ctx, store.From("notifications").
		Eq("user_id", userID).
		Eq("read", false))
}
