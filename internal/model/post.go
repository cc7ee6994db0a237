package model

import (
	"errors"
	"time"
)

// Post represents a published photo dump with its metadata.
// UserEmail is denormalized onto the row so views can derive a display name
// even when the access policy forbids joining the users table.
type Post struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	UserEmail string    `db:"user_email" json:"user_email"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	Caption   *string   `db:"caption" json:"caption"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Derived fields, computed by the view layer (not stored on the row)
	LikeCount    int    `json:"like_count"`
	CommentCount int    `json:"comment_count"`
	IsLiked      bool   `json:"is_liked"`
	DisplayName  string `json:"display_name,omitempty"`
}

// Like is a post like. At most one row exists per (user, post) pair.
type Like struct {
	PostID    int64     `db:"post_id" json:"post_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CommentLike is the parallel entity for comment likes.
type CommentLike struct {
	CommentID int64     `db:"comment_id" json:"comment_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Post constraints
const (
	MaxPostCaptionLength = 2200
	PostImageFolder      = "posts"
)

// Post errors
var (
	ErrPostNotFound   = errors.New("post not found")
	ErrNotPostOwner   = errors.New("not the owner of this post")
	ErrNoImage        = errors.New("an image is required")
	ErrCaptionTooLong = errors.New("caption too long")
)
