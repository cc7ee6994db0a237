package model

import (
	"errors"
	"time"
)

// Notification messages emitted by moderation verdicts.
const (
	MsgPostApproved = "Your post has been approved and published!"
	MsgPostRejected = "Your post was rejected."
)

// Notification is a message for a single recipient. Rows are only ever
// mutated by the mark-read action (read: false -> true), never deleted by
// the normal flow.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"` // Recipient
	Message   string    `db:"message" json:"message"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

var (
	ErrNotificationNotFound = errors.New("notification not found")
)
