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

type commentRepository struct {
	store *store.Store
}

func NewCommentRepository(s *store.Store) CommentRepository {
	return &commentRepository{store: s}
}

func (r *commentRepository) Create(ctx context.Context, postID, userID int64, userEmail, content string, parentID *int64) (*model.Comment, error) {
	if parentID != nil {
		parent, err := r.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, model.ErrParentWrongPost
		}
	}

	var comment model.Comment
	err := r.store.Insert(ctx, "comments", map[string]any{
		"post_id":    postID,
		"user_id":    userID,
		"user_email": userEmail,
		"content":    content,
		"parent_id":  parentID,
	}, &comment)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &comment, nil
}

func (r *commentRepository) GetByPostID(ctx context.Context, postID int64) ([]model.Comment, error) {
	comments := []model.Comment{}
	q := store.From("comments").Eq("post_id", postID).OrderBy("created_at", store.Asc)
	if err := r.store.Select(ctx, q, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	var comment model.Comment
	err := r.store.Get(ctx, store.From("comments").Eq("id", commentID), &comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Delete removes a comment owned by userID. A comment that still has replies
// cannot be deleted; callers surface ErrCommentHasReplies to the user.
func (r *commentRepository) Delete(ctx context.Context, commentID, userID int64) error {
	comment, err := r.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return model.ErrNotCommentOwner
	}

	replies, err := r.store.Count(ctx, store.From("comments").Eq("parent_id", commentID))
	if err != nil {
		return err
	}
	if replies > 0 {
		return model.ErrCommentHasReplies
	}

	return r.store.Delete(ctx, "comments", map[string]any{"id": commentID}, comment)
}

func (r *commentRepository) CommentCounts(ctx context.Context, postIDs []int64) (map[int64]int, error) {
	return r.countGrouped(ctx, "comments", "post_id", postIDs)
}

func (r *commentRepository) CommentCount(ctx context.Context, postID int64) (int, error) {
	return r.store.Count(ctx, store.From("comments").Eq("post_id", postID))
}

func (r *commentRepository) LikeComment(ctx context.Context, commentID, userID int64) (bool, error) {
	query := `
		INSERT INTO comment_likes (comment_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (comment_id, user_id) DO NOTHING
		RETURNING comment_id, user_id, created_at
	`
	var like model.CommentLike
	err := r.store.DB().GetContext(ctx, &like, query, commentID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert comment like: %w", err)
	}

	r.store.Publish(ctx, changefeed.TableCommentLikes, changefeed.KindInsert, like, nil)
	return true, nil
}

func (r *commentRepository) UnlikeComment(ctx context.Context, commentID, userID int64) (bool, error) {
	query := `
		DELETE FROM comment_likes
		WHERE comment_id = $1 AND user_id = $2
		RETURNING comment_id, user_id, created_at
	`
	var like model.CommentLike
	err := r.store.DB().GetContext(ctx, &like, query, commentID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete comment like: %w", err)
	}

	r.store.Publish(ctx, changefeed.TableCommentLikes, changefeed.KindDelete, nil, like)
	return true, nil
}

func (r *commentRepository) CommentLikeCounts(ctx context.Context, commentIDs []int64) (map[int64]int, error) {
	return r.countGrouped(ctx, "comment_likes", "comment_id", commentIDs)
}

func (r *commentRepository) CommentLikedByUser(ctx context.Context, userID int64, commentIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(commentIDs))
	if len(commentIDs) == 0 {
		return out, nil
	}

	query := `SELECT comment_id FROM comment_likes WHERE user_id = $1 AND comment_id = ANY($2)`
	var liked []int64
	if err := r.store.DB().SelectContext(ctx, &liked, query, userID, int64Array(commentIDs)); err != nil {
		return nil, fmt.Errorf("check comment likes: %w", err)
	}

	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

func (r *commentRepository) countGrouped(ctx context.Context, table, column string, ids []int64) (map[int64]int, error) {
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
