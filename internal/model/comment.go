package model

import (
	"errors"
	"time"
)

// Comment represents a comment on a post. ParentID is nil for top-level
// comments; a non-nil parent must belong to the same post.
type Comment struct {
	ID        int64     `db:"id" json:"id"`
	PostID    int64     `db:"post_id" json:"post_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	UserEmail string    `db:"user_email" json:"user_email"`
	Content   string    `db:"content" json:"content"`
	ParentID  *int64    `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Derived fields
	LikeCount   int    `json:"like_count"`
	IsLiked     bool   `json:"is_liked"`
	DisplayName string `json:"display_name,omitempty"`
}

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// Comment constraints
const (
	MaxCommentLength = 2200
)

// Comment errors
var (
	ErrCommentNotFound   = errors.New("comment not found")
	ErrNotCommentOwner   = errors.New("not the owner of this comment")
	ErrContentRequired   = errors.New("comment content is required")
	ErrContentTooLong    = errors.New("comment content too long")
	ErrParentWrongPost   = errors.New("parent comment belongs to a different post")
	ErrCommentHasReplies = errors.New("comment has replies")
)
