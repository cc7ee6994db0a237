package model

import (
	"errors"
	"time"
)

// DirectMessage is a private message between two users. A conversation is the
// unordered pair {sender, recipient}; the unread count for a conversation is
// the number of rows where recipient = viewer, sender = partner, read = false.
type DirectMessage struct {
	ID          int64     `db:"id" json:"id"`
	SenderID    int64     `db:"sender_id" json:"sender_id"`
	RecipientID int64     `db:"recipient_id" json:"recipient_id"`
	Message     string    `db:"message" json:"message"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// GlobalMessage is a message in the single global chat room.
type GlobalMessage struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Conversation is a partner plus the derived preview/unread state shown in
// the conversations list.
type Conversation struct {
	Partner         UserSummary `json:"partner"`
	UnreadCount     int         `json:"unread_count"`
	LastMessage     string      `json:"last_message"`
	LastMessageTime *time.Time  `json:"last_message_time,omitempty"`
}

// ChatHistoryLimit caps how many global chat messages any view retains.
const ChatHistoryLimit = 200

const MaxMessageLength = 4000

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrNotMessageOwner  = errors.New("not the owner of this message")
	ErrEmptyMessage     = errors.New("message text is required")
	ErrMessageTooLong   = errors.New("message too long")
	ErrCannotMessageSelf = errors.New("cannot message yourself")
)
