package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the social activity stream
const (
	EventPostLiked     = "post_liked"
	EventPostCommented = "post_commented"
	EventUserFollowed  = "user_followed"
	EventPostApproved  = "post_approved"
	EventPostRejected  = "post_rejected"
)

// Stream names
const (
	StreamSocial = "stream:social"
)

// Consumer group name for notification workers
const (
	ConsumerGroupNotify = "notify_workers"
)

// SocialEvent represents an event published to the social activity stream.
// The notification worker turns these into notification rows for the
// recipient and wakes the recipient's open views over the relay.
type SocialEvent struct {
	Type      string `json:"type"`      // EventPostLiked, EventPostCommented, ...
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	// ActorID is the user whose action produced the event.
	// Zero for moderation events.
	ActorID int64 `json:"actor_id,omitempty"`

	// RecipientID is the user who should be notified.
	RecipientID int64 `json:"recipient_id"`

	// Post events (liked, commented, approved, rejected)
	PostID int64 `json:"post_id,omitempty"`

	// Comment event
	CommentID int64 `json:"comment_id,omitempty"`

	// ActorName is the display name used when rendering the message.
	ActorName string `json:"actor_name,omitempty"`
}

// NewPostLikedEvent creates an event for when a user likes a post.
func NewPostLikedEvent(actorID, ownerID, postID int64, actorName string) SocialEvent {
	return SocialEvent{
		Type:        EventPostLiked,
		Timestamp:   time.Now().Unix(),
		ActorID:     actorID,
		RecipientID: ownerID,
		PostID:      postID,
		ActorName:   actorName,
	}
}

// NewPostCommentedEvent creates an event for when a user comments on a post.
func NewPostCommentedEvent(actorID, ownerID, postID, commentID int64, actorName string) SocialEvent {
	return SocialEvent{
		Type:        EventPostCommented,
		Timestamp:   time.Now().Unix(),
		ActorID:     actorID,
		RecipientID: ownerID,
		PostID:      postID,
		CommentID:   commentID,
		ActorName:   actorName,
	}
}

// NewUserFollowedEvent creates an event for when a user follows another.
func NewUserFollowedEvent(followerID, followeeID int64, followerName string) SocialEvent {
	return SocialEvent{
		Type:        EventUserFollowed,
		Timestamp:   time.Now().Unix(),
		ActorID:     followerID,
		RecipientID: followeeID,
		ActorName:   followerName,
	}
}

// NewPostApprovedEvent creates an event for when moderation approves a pending post.
func NewPostApprovedEvent(ownerID, postID int64) SocialEvent {
	return SocialEvent{
		Type:        EventPostApproved,
		Timestamp:   time.Now().Unix(),
		RecipientID: ownerID,
		PostID:      postID,
	}
}

// NewPostRejectedEvent creates an event for when moderation rejects a pending post.
func NewPostRejectedEvent(ownerID, pendingID int64) SocialEvent {
	return SocialEvent{
		Type:        EventPostRejected,
		Timestamp:   time.Now().Unix(),
		RecipientID: ownerID,
		PostID:      pendingID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e SocialEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseSocialEvent parses a SocialEvent from Redis stream message values.
func ParseSocialEvent(values map[string]interface{}) (SocialEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return SocialEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event SocialEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return SocialEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
