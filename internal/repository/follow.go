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

type followRepository struct {
	store *store.Store
}

func NewFollowRepository(s *store.Store) FollowRepository {
	return &followRepository{store: s}
}

// Create inserts the directed edge. Uniqueness is enforced by the primary key
// on (follower_id, following_id); inserting an existing edge is a no-op.
func (r *followRepository) Create(ctx context.Context, followerID, followingID int64) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, following_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, following_id) DO NOTHING
		RETURNING follower_id, following_id, created_at
	`
	var follow model.Follow
	err := r.store.DB().GetContext(ctx, &follow, query, followerID, followingID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil // Edge already exists
	}
	if err != nil {
		return false, fmt.Errorf("insert follow: %w", err)
	}

	r.store.Publish(ctx, changefeed.TableFollows, changefeed.KindInsert, follow, nil)
	return true, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followingID int64) (bool, error) {
	query := `
		DELETE FROM follows
		WHERE follower_id = $1 AND following_id = $2
		RETURNING follower_id, following_id, created_at
	`
	var follow model.Follow
	err := r.store.DB().GetContext(ctx, &follow, query, followerID, followingID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete follow: %w", err)
	}

	r.store.Publish(ctx, changefeed.TableFollows, changefeed.KindDelete, nil, follow)
	return true, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID int64) (bool, error) {
	n, err := r.store.Count(ctx, store.From("follows").
		Eq("follower_id", followerID).
		Eq("following_id", followingID))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *followRepository) Counts(ctx context.Context, userID int64) (model.FollowCounts, error) {
	var counts model.FollowCounts

	followers, err := r.store.Count(ctx, store.From("follows").Eq("following_id", userID))
	if err != nil {
		return counts, err
	}
	following, err := r.store.Count(ctx, store.From("follows").Eq("follower_id", userID))
	if err != nil {
		return counts, err
	}

	counts.Followers = followers
	counts.Following = following
	return counts, nil
}

func (r *followRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT follower_id FROM follows WHERE following_id = $1`
	if err := r.store.DB().SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("get follower ids: %w", err)
	}
	return ids, nil
}

func (r *followRepository) GetFollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT following_id FROM follows WHERE follower_id = $1`
	if err := r.store.DB().SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("get following ids: %w", err)
	}
	return ids, nil
}
