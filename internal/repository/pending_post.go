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

type pendingPostRepository struct {
	store *store.Store
}

func NewPendingPostRepository(s *store.Store) PendingPostRepository {
	return &pendingPostRepository{store: s}
}

func (r *pendingPostRepository) Create(ctx context.Context, userID int64, userEmail, imageURL string, caption *string) (*model.PendingPost, error) {
	var post model.PendingPost
	err := r.store.Insert(ctx, "pending_posts", map[string]any{
		"user_id":    userID,
		"user_email": userEmail,
		"image_url":  imageURL,
		"caption":    caption,
		"status":     model.PendingStatusPending,
	}, &post)
	if err != nil {
		return nil, fmt.Errorf("insert pending post: %w", err)
	}
	return &post, nil
}

func (r *pendingPostRepository) GetByID(ctx context.Context, id int64) (*model.PendingPost, error) {
	var post model.PendingPost
	err := r.store.Get(ctx, store.From("pending_posts").Eq("id", id), &post)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPendingPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *pendingPostRepository) GetPending(ctx context.Context, limit int) ([]model.PendingPost, error) {
	posts := []model.PendingPost{}
	q := store.From("pending_posts").
		Eq("status", model.PendingStatusPending).
		OrderBy("created_at", store.Desc).
		Limit(limit)
	if err := r.store.Select(ctx, q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *pendingPostRepository) GetByUser(ctx context.Context, userID int64) ([]model.PendingPost, error) {
	posts := []model.PendingPost{}
	q := store.From("pending_posts").Eq("user_id", userID).OrderBy("created_at", store.Desc)
	if err := r.store.Select(ctx, q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// SetStatus transitions a pending post to its verdict. The status guard in
// the WHERE clause makes the transition terminal: a second verdict finds no
// row and fails with ErrAlreadyModerated.
func (r *pendingPostRepository) SetStatus(ctx context.Context, id int64, status string) (*model.PendingPost, error) {
	query := `
		UPDATE pending_posts
		SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING id, user_id, user_email, image_url, caption, status, created_at
	`
	var post model.PendingPost
	err := r.store.DB().GetContext(ctx, &post, query, status, id, model.PendingStatusPending)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, model.ErrAlreadyModerated
	}
	if err != nil {
		return nil, fmt.Errorf("set pending post status: %w", err)
	}

	r.store.Publish(ctx, changefeed.TablePendingPosts, changefeed.KindUpdate, post, nil)
	return &post, nil
}
