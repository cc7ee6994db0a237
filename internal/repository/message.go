package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
	"shotzi/internal/store"
)

type messageRepository struct {
	store *store.Store
}

func NewMessageRepository(s *store.Store) MessageRepository {
	return &messageRepository{store: s}
}

func (r *messageRepository) CreateDirect(ctx context.Context, senderID, recipientID int64, text string) (*model.DirectMessage, error) {
	var msg model.DirectMessage
	err := r.store.Insert(ctx, "direct_messages", map[string]any{
		"sender_id":    senderID,
		"recipient_id": recipientID,
		"message":      text,
		"read":         false,
	}, &msg)
	if err != nil {
		return nil, fmt.Errorf("insert direct message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepository) GetConversation(ctx context.Context, userID, partnerID int64, limit int) ([]model.DirectMessage, error) {
	messages := []model.DirectMessage{}
	query := `
		SELECT * FROM (
			SELECT id, sender_id, recipient_id, message, read, created_at
			FROM direct_messages
			WHERE (sender_id = $1 AND recipient_id = $2)
			   OR (sender_id = $2 AND recipient_id = $1)
			ORDER BY created_at DESC
			LIMIT $3
		) latest
		ORDER BY created_at ASC
	`
	if err := r.store.DB().SelectContext(ctx, &messages, query, userID, partnerID, limit); err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return messages, nil
}

// MarkConversationRead marks every unread message from partner to viewer.
// One update event is published for the conversation; subscribed views
// recompute their unread counts rather than patching per row.
func (r *messageRepository) MarkConversationRead(ctx context.Context, viewerID, partnerID int64) error {
	query := `
		UPDATE direct_messages
		SET read = true
		WHERE recipient_id = $1 AND sender_id = $2 AND read = false
	`
	if _, err := r.store.DB().ExecContext(ctx, query, viewerID, partnerID); err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}

	newRow := map[string]any{
		"sender_id":    partnerID,
		"recipient_id": viewerID,
		"read":         true,
	}
	r.store.Publish(ctx, changefeed.TableDirectMessages, changefeed.KindUpdate, newRow, nil)
	return nil
}

func (r *messageRepository) UnreadByPartner(ctx context.Context, viewerID int64) (map[int64]int, error) {
	query := `
		SELECT sender_id AS id, COUNT(*) AS n
		FROM direct_messages
		WHERE recipient_id = $1 AND read = false
		GROUP BY sender_id
	`
	var rows []struct {
		ID int64 `db:"id"`
		N  int   `db:"n"`
	}
	if err := r.store.DB().SelectContext(ctx, &rows, query, viewerID); err != nil {
		return nil, fmt.Errorf("unread by partner: %w", err)
	}

	out := make(map[int64]int, len(rows))
	for _, row := range rows {
		out[row.ID] = row.N
	}
	return out, nil
}

func (r *messageRepository) UnreadFromPartner(ctx context.Context, viewerID, partnerID int64) (int, error) {
	return r.store.Count(ctx, store.From("direct_messages").
		Eq("recipient_id", viewerID).
		Eq("sender_id", partnerID).
		Eq("read", false))
}

func (r *messageRepository) PartnerIDs(ctx context.Context, viewerID int64) ([]int64, error) {
	query := `
		SELECT DISTINCT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END
		FROM direct_messages
		WHERE sender_id = $1 OR recipient_id = $1
	`
	var ids []int64
	if err := r.store.DB().SelectContext(ctx, &ids, query, viewerID); err != nil {
		return nil, fmt.Errorf("partner ids: %w", err)
	}
	return ids, nil
}

func (r *messageRepository) LastMessage(ctx context.Context, userID, partnerID int64) (*model.DirectMessage, error) {
	query := `
		SELECT id, sender_id, recipient_id, message, read, created_at
		FROM direct_messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at DESC
		LIMIT 1
	`
	var msg model.DirectMessage
	err := r.store.DB().GetContext(ctx, &msg, query, userID, partnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepository) DeleteDirect(ctx context.Context, messageID, userID int64) error {
	var msg model.DirectMessage
	err := r.store.Get(ctx, store.From("direct_messages").Eq("id", messageID), &msg)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return model.ErrNotMessageOwner
	}
	return r.store.Delete(ctx, "direct_messages", map[string]any{"id": messageID}, msg)
}

func (r *messageRepository) CreateGlobal(ctx context.Context, userID int64, text string) (*model.GlobalMessage, error) {
	var msg model.GlobalMessage
	err := r.store.Insert(ctx, "global_messages", map[string]any{
		"user_id": userID,
		"message": text,
	}, &msg)
	if err != nil {
		return nil, fmt.Errorf("insert global message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepository) GetGlobalByIDs(ctx context.Context, ids []int64) ([]model.GlobalMessage, error) {
	messages := []model.GlobalMessage{}
	if len(ids) == 0 {
		return messages, nil
	}

	in := make([]any, len(ids))
	for i, id := range ids {
		in[i] = id
	}
	q := store.From("global_messages").In("id", in...).OrderBy("created_at", store.Asc)
	if err := r.store.Select(ctx, q, &messages); err != nil {
		return nil, fmt.Errorf("get global messages by ids: %w", err)
	}
	return messages, nil
}

func (r *messageRepository) GetGlobalRecent(ctx context.Context, limit int) ([]model.GlobalMessage, error) {
	messages := []model.GlobalMessage{}
	query := `
		SELECT * FROM (
			SELECT id, user_id, message, created_at
			FROM global_messages
			ORDER BY created_at DESC
			LIMIT $1
		) latest
		ORDER BY created_at ASC
	`
	if err := r.store.DB().SelectContext(ctx, &messages, query, limit); err != nil {
		return nil, fmt.Errorf("get global messages: %w", err)
	}
	return messages, nil
}

func (r *messageRepository) DeleteGlobal(ctx context.Context, messageID, userID int64) error {
	var msg model.GlobalMessage
	err := r.store.Get(ctx, store.From("global_messages").Eq("id", messageID), &msg)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	if msg.UserID != userID {
		return model.ErrNotMessageOwner
	}
	return r.store.Delete(ctx, "global_messages", map[string]any{"id": messageID}, msg)
}
