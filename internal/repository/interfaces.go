package repository

import (
	"context"
	"time"

	"shotzi/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetSummaries returns profile summaries keyed by user ID; missing users
	// are simply absent from the map (callers fall back to denormalized data).
	GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error)
	// TouchLastActive records a presence heartbeat.
	TouchLastActive(ctx context.Context, userID int64, at time.Time) error
}

type PostRepository interface {
	Create(ctx context.Context, userID int64, userEmail, imageURL string, caption *string) (*model.Post, error)
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	// GetAll returns a window of posts newest first; offset skips the posts
	// already loaded (infinite-scroll pagination).
	GetAll(ctx context.Context, limit, offset int) ([]model.Post, error)
	GetByUser(ctx context.Context, userID int64, limit int) ([]model.Post, error)
	Delete(ctx context.Context, postID, userID int64) error

	// Like creates the (user, post) like row; returns false when it already
	// existed (idempotent toggle).
	Like(ctx context.Context, postID, userID int64) (bool, error)
	// Unlike removes the row; returns false when there was nothing to remove.
	Unlike(ctx context.Context, postID, userID int64) (bool, error)
	// LikeCounts returns like counts per post for the given IDs.
	LikeCounts(ctx context.Context, postIDs []int64) (map[int64]int, error)
	// LikedByUser reports which of the given posts the user has liked.
	LikedByUser(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	// LikeCount re-queries one post's like count (full recompute path).
	LikeCount(ctx context.Context, postID int64) (int, error)
}

type CommentRepository interface {
	// Create validates that a parent comment, when given, belongs to postID.
	Create(ctx context.Context, postID, userID int64, userEmail, content string, parentID *int64) (*model.Comment, error)
	GetByPostID(ctx context.Context, postID int64) ([]model.Comment, error)
	GetByID(ctx context.Context, commentID int64) (*model.Comment, error)
	// Delete rejects deletion while replies exist.
	Delete(ctx context.Context, commentID, userID int64) error
	CommentCounts(ctx context.Context, postIDs []int64) (map[int64]int, error)
	CommentCount(ctx context.Context, postID int64) (int, error)

	LikeComment(ctx context.Context, commentID, userID int64) (bool, error)
	UnlikeComment(ctx context.Context, commentID, userID int64) (bool, error)
	CommentLikeCounts(ctx context.Context, commentIDs []int64) (map[int64]int, error)
	CommentLikedByUser(ctx context.Context, userID int64, commentIDs []int64) (map[int64]bool, error)
}

type FollowRepository interface {
	// Create inserts the edge; returns false when it already existed.
	Create(ctx context.Context, followerID, followingID int64) (bool, error)
	// Delete removes the edge; returns false when there was none.
	Delete(ctx context.Context, followerID, followingID int64) (bool, error)
	Exists(ctx context.Context, followerID, followingID int64) (bool, error)
	Counts(ctx context.Context, userID int64) (model.FollowCounts, error)
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
	GetFollowingIDs(ctx context.Context, userID int64) ([]int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, userID int64, message string) (*model.Notification, error)
	// GetUnread returns unread notifications, newest first.
	GetUnread(ctx context.Context, userID int64) ([]model.Notification, error)
	// MarkAsRead flips read to true for one notification owned by userID.
	MarkAsRead(ctx context.Context, userID, notificationID int64) error
	UnreadCount(ctx context.Context, userID int64) (int, error)
}

type MessageRepository interface {
	CreateDirect(ctx context.Context, senderID, recipientID int64, text string) (*model.DirectMessage, error)
	// GetConversation returns the messages between two users, oldest first.
	GetConversation(ctx context.Context, userID, partnerID int64, limit int) ([]model.DirectMessage, error)
	// MarkConversationRead marks every unread message from partner to viewer.
	MarkConversationRead(ctx context.Context, viewerID, partnerID int64) error
	// UnreadByPartner returns viewer's unread counts keyed by partner ID.
	UnreadByPartner(ctx context.Context, viewerID int64) (map[int64]int, error)
	// UnreadFromPartner re-queries one conversation's unread count.
	UnreadFromPartner(ctx context.Context, viewerID, partnerID int64) (int, error)
	// PartnerIDs returns every user the viewer has exchanged messages with.
	PartnerIDs(ctx context.Context, viewerID int64) ([]int64, error)
	// LastMessage returns the newest message of a conversation, or nil.
	LastMessage(ctx context.Context, userID, partnerID int64) (*model.DirectMessage, error)
	DeleteDirect(ctx context.Context, messageID, userID int64) error

	CreateGlobal(ctx context.Context, userID int64, text string) (*model.GlobalMessage, error)
	// GetGlobalRecent returns the newest limit messages, oldest first.
	GetGlobalRecent(ctx context.Context, limit int) ([]model.GlobalMessage, error)
	// GetGlobalByIDs fetches cached message IDs, oldest first. Deleted
	// messages are simply absent from the result.
	GetGlobalByIDs(ctx context.Context, ids []int64) ([]model.GlobalMessage, error)
	DeleteGlobal(ctx context.Context, messageID, userID int64) error
}

type PendingPostRepository interface {
	Create(ctx context.Context, userID int64, userEmail, imageURL string, caption *string) (*model.PendingPost, error)
	GetByID(ctx context.Context, id int64) (*model.PendingPost, error)
	GetPending(ctx context.Context, limit int) ([]model.PendingPost, error)
	GetByUser(ctx context.Context, userID int64) ([]model.PendingPost, error)
	// SetStatus transitions pending -> approved|rejected exactly once.
	SetStatus(ctx context.Context, id int64, status string) (*model.PendingPost, error)
}
