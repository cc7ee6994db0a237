package model

import (
	"errors"
	"time"
)

// Follow is a directed edge: follower_id follows following_id.
type Follow struct {
	FollowerID  int64     `db:"follower_id" json:"follower_id"`
	FollowingID int64     `db:"following_id" json:"following_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// FollowCounts holds both directed edge counts for a profile.
type FollowCounts struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
}

var (
	ErrNotFollowing     = errors.New("not following this user")
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
)
