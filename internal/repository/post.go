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

type postRepository struct {
	store *store.Store
}

func NewPostRepository(s *store.Store) PostRepository {
	return &postRepository{store: s}
}

func (r *postRepository) Create(ctx context.Context, userID int64, userEmail, imageURL string, caption *string) (*model.Post, error) {
	var post model.Post
	err := r.store.Insert(ctx, "posts", map[string]any{
		"user_id":    userID,
		"user_email": userEmail,
		"image_url":  imageURL,
		"caption":    caption,
	}, &post)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	var post model.Post
	err := r.store.Get(ctx, store.From("posts").Eq("id", postID), &post)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Post, error) {
	posts := []model.Post{}
	q := store.From("posts").OrderBy("created_at", store.Desc).Limit(limit).Offset(offset)
	if err := r.store.Select(ctx, q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]model.Post, error) {
	posts := []model.Post{}
	q := store.From("posts").Eq("user_id", userID).OrderBy("created_at", store.Desc).Limit(limit)
	if err := r.store.Select(ctx, q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Delete(ctx context.Context, postID, userID int64) error {
	post, err := r.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return model.ErrNotPostOwner
	}
	return r.store.Delete(ctx, "posts", map[string]any{"id": postID}, post)
}

// Like inserts the like row if absent. The conflict target makes the toggle
// idempotent: liking an already-liked post commits nothing and publishes
// nothing.
func (r *postRepository) Like(ctx context.Context, postID, userID int64) (bool, error) {
	query := `
		INSERT INTO likes (post_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
		RETURNING post_id, user_id, created_at
	`
	var like model.Like
	err := r.store.DB().GetContext(ctx, &like, query, postID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil // Already liked
	}
	if err != nil {
		return false, fmt.Errorf("insert like: %w", err)
	}

	r.store.Publish(ctx, changefeed.TableLikes, changefeed.KindInsert, like, nil)
	return true, nil
}

func (r *postRepository) Unlike(ctx context.Context, postID, userID int64) (bool, error) {
	query := `
		DELETE FROM likes
		WHERE post_id = $1 AND user_id = $2
		RETURNING post_id, user_id, created_at
	`
	var like model.Like
	err := r.store.DB().GetContext(ctx, &like, query, postID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil // Nothing to remove
	}
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}

	r.store.Publish(ctx, changefeed.TableLikes, changefeed.KindDelete, nil, like)
	return true, nil
}

func (r *postRepository) LikeCounts(ctx context.Context, postIDs []int64) (map[int64]int, error) {
	return r.countByColumn(ctx, "likes", "post_id", postIDs)
}

func (r *postRepository) LikedByUser(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	query := `SELECT post_id FROM likes WHERE user_id = $1 AND post_id = ANY($2)`
	var liked []int64
	if err := r.store.DB().SelectContext(ctx, &liked, query, userID, int64Array(postIDs)); err != nil {
		return nil, fmt.Errorf("check likes: %w", err)
	}

	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

func (r *postRepository) LikeCount(ctx context.Context, postID int64) (int, error) {
	return r.store.Count(ctx, store.From("likes").Eq("post_id", postID))
}

// countByColumn groups rows of a table by a foreign-key column.
func (r *postRepository) countByColumn(ctx context.Context, table, column string, ids []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`
		SELECT %s AS id, COUNT(*) AS n
		FROM %s
		WHERE %s = ANY($1)
		GROUP BY %s
	`, column, table, column, column)

	var rows []struct {
		ID int64 `db:"id"`
		N  int   `db:"n"`
	}
	if err := r.store.DB().SelectContext(ctx, &rows, query, int64Array(ids)); err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}

	for _, row := range rows {
		out[row.ID] = row.N
	}
	return out, nil
}
