package model

import (
	"errors"
	"time"
)

// Pending post statuses. A pending post is terminal once approved or rejected.
const (
	PendingStatusPending  = "pending"
	PendingStatusApproved = "approved"
	PendingStatusRejected = "rejected"
)

// PendingPost is an uploaded post sitting in the moderation queue.
type PendingPost struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	UserEmail string    `db:"user_email" json:"user_email"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	Caption   *string   `db:"caption" json:"caption"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

var (
	ErrPendingPostNotFound = errors.New("pending post not found")

	// ErrAlreadyModerated is returned when approving or rejecting a post that
	// already received a verdict.
	ErrAlreadyModerated = errors.New("pending post already moderated")
)
