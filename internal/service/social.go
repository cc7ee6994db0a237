package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"shotzi/internal/model"
	"shotzi/internal/queue"
	"shotzi/internal/repository"
)

// SocialService covers likes, comments and follows. Writes that should
// notify another user publish an event on the social stream; the worker
// turns those into notification rows asynchronously.
type SocialService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	followRepo  repository.FollowRepository
	userRepo    repository.UserRepository
	publisher   queue.Publisher
}

func NewSocialService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	publisher queue.Publisher,
) *SocialService {
	return &SocialService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		followRepo:  followRepo,
		userRepo:    userRepo,
		publisher:   publisher,
	}
}

// LikePost records a like. Duplicate likes are idempotent: the repository
// reports created=false and no notification is emitted.
func (s *SocialService) LikePost(ctx context.Context, userID, postID int64) error {
	created, err := s.postRepo.Like(ctx, postID, userID)
	if err != nil {
		return fmt.Errorf("like post: %w", err)
	}
	if !created {
		return nil
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		log.Printf("[Social] LikePost notify skipped: post=%d err=%v", postID, err)
		return nil
	}

	s.publish(ctx, queue.NewPostLikedEvent(userID, post.UserID, postID, s.actorName(ctx, userID)))
	return nil
}

// UnlikePost removes a like. Removing a like that isn't there is a no-op.
func (s *SocialService) UnlikePost(ctx context.Context, userID, postID int64) error {
	if _, err := s.postRepo.Unlike(ctx, postID, userID); err != nil {
		return fmt.Errorf("unlike post: %w", err)
	}
	return nil
}

// Comment creates a comment, optionally as a reply. The repository enforces
// that a parent belongs to the same post.
func (s *SocialService) Comment(ctx context.Context, userID, postID int64, content string, parentID *int64) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.ErrContentRequired
	}
	if len(content) > model.MaxCommentLength {
		return nil, model.ErrContentTooLong
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get commenter: %w", err)
	}

	comment, err := s.commentRepo.Create(ctx, postID, userID, user.Email, content, parentID)
	if err != nil {
		return nil, err
	}

	if post, err := s.postRepo.GetByID(ctx, postID); err == nil {
		s.publish(ctx, queue.NewPostCommentedEvent(userID, post.UserID, postID, comment.ID, user.Username))
	}

	return comment, nil
}

// DeleteComment removes a comment owned by userID. Comments with replies
// cannot be deleted.
func (s *SocialService) DeleteComment(ctx context.Context, userID, commentID int64) error {
	return s.commentRepo.Delete(ctx, commentID, userID)
}

// LikeComment records a comment like. Idempotent like LikePost, but comment
// likes never notify.
func (s *SocialService) LikeComment(ctx context.Context, userID, commentID int64) error {
	if _, err := s.commentRepo.LikeComment(ctx, commentID, userID); err != nil {
		return fmt.Errorf("like comment: %w", err)
	}
	return nil
}

// UnlikeComment removes a comment like.
func (s *SocialService) UnlikeComment(ctx context.Context, userID, commentID int64) error {
	if _, err := s.commentRepo.UnlikeComment(ctx, commentID, userID); err != nil {
		return fmt.Errorf("unlike comment: %w", err)
	}
	return nil
}

// Follow creates a follow edge. Self-follows are rejected here, not left to
// the client. Duplicate follows are idempotent and don't re-notify.
func (s *SocialService) Follow(ctx context.Context, followerID, followingID int64) error {
	if followerID == followingID {
		return model.ErrCannotFollowSelf
	}

	created, err := s.followRepo.Create(ctx, followerID, followingID)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	if !created {
		return nil
	}

	s.publish(ctx, queue.NewUserFollowedEvent(followerID, followingID, s.actorName(ctx, followerID)))
	return nil
}

// Unfollow removes a follow edge.
func (s *SocialService) Unfollow(ctx context.Context, followerID, followingID int64) error {
	removed, err := s.followRepo.Delete(ctx, followerID, followingID)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	if !removed {
		return model.ErrNotFollowing
	}
	return nil
}

// DeletePost removes a post owned by userID.
func (s *SocialService) DeletePost(ctx context.Context, userID, postID int64) error {
	return s.postRepo.Delete(ctx, postID, userID)
}

// actorName resolves the display name used in notification text.
func (s *SocialService) actorName(ctx context.Context, userID int64) string {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "Someone"
	}
	if user.Username != "" {
		return user.Username
	}
	return model.EmailLocalPart(user.Email)
}

// publish pushes an event onto the social stream, logging failures instead
// of surfacing them. Notification delivery is best-effort; the like or
// comment itself already committed.
func (s *SocialService) publish(ctx context.Context, event queue.SocialEvent) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamSocial, event); err != nil {
		log.Printf("[Social] publish FAILED: type=%s err=%v", event.Type, err)
	}
}
