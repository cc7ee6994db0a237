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

// ModerationService owns the pending-post queue: submissions go in, an
// admin verdict moves each one to a terminal state exactly once. Approval
// clones the pending row into the public posts table; both verdicts notify
// the owner through the social stream.
type ModerationService struct {
	pendingRepo repository.PendingPostRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	publisher   queue.Publisher
}

func NewModerationService(
	pendingRepo repository.PendingPostRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	publisher queue.Publisher,
) *ModerationService {
	return &ModerationService{
		pendingRepo: pendingRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		publisher:   publisher,
	}
}

// Submit places a new upload in the moderation queue.
func (s *ModerationService) Submit(ctx context.Context, userID int64, imageURL string, caption *string) (*model.PendingPost, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, model.ErrNoImage
	}
	if caption != nil && len(*caption) > model.MaxPostCaptionLength {
		return nil, model.ErrCaptionTooLong
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get submitter: %w", err)
	}

	pending, err := s.pendingRepo.Create(ctx, userID, user.Email, imageURL, caption)
	if err != nil {
		return nil, fmt.Errorf("create pending post: %w", err)
	}

	log.Printf("[Moderation] Submit OK: pending=%d user=%d", pending.ID, userID)
	return pending, nil
}

// Queue returns posts still awaiting a verdict.
func (s *ModerationService) Queue(ctx context.Context, limit int) ([]model.PendingPost, error) {
	return s.pendingRepo.GetPending(ctx, limit)
}

// MySubmissions returns a user's own pending posts, any status.
func (s *ModerationService) MySubmissions(ctx context.Context, userID int64) ([]model.PendingPost, error) {
	return s.pendingRepo.GetByUser(ctx, userID)
}

// Approve transitions a pending post to approved, clones it into the public
// posts table and notifies the owner. The status guard in the repository
// makes a second verdict fail with ErrAlreadyModerated.
func (s *ModerationService) Approve(ctx context.Context, pendingID int64) (*model.Post, error) {
	pending, err := s.pendingRepo.SetStatus(ctx, pendingID, model.PendingStatusApproved)
	if err != nil {
		return nil, err
	}

	post, err := s.postRepo.Create(ctx, pending.UserID, pending.UserEmail, pending.ImageURL, pending.Caption)
	if err != nil {
		// The verdict already landed; surface the clone failure loudly
		log.Printf("[Moderation] Approve clone FAILED: pending=%d err=%v", pendingID, err)
		return nil, fmt.Errorf("publish approved post: %w", err)
	}

	if _, err := s.publisher.Publish(ctx, queue.StreamSocial, queue.NewPostApprovedEvent(pending.UserID, post.ID)); err != nil {
		log.Printf("[Moderation] Approve notify FAILED: pending=%d err=%v", pendingID, err)
	}

	log.Printf("[Moderation] Approve OK: pending=%d post=%d owner=%d", pendingID, post.ID, pending.UserID)
	return post, nil
}

// Reject transitions a pending post to rejected and notifies the owner.
func (s *ModerationService) Reject(ctx context.Context, pendingID int64) (*model.PendingPost, error) {
	pending, err := s.pendingRepo.SetStatus(ctx, pendingID, model.PendingStatusRejected)
	if err != nil {
		return nil, err
	}

	if _, err := s.publisher.Publish(ctx, queue.StreamSocial, queue.NewPostRejectedEvent(pending.UserID, pending.ID)); err != nil {
		log.Printf("[Moderation] Reject notify FAILED: pending=%d err=%v", pendingID, err)
	}

	log.Printf("[Moderation] Reject OK: pending=%d owner=%d", pendingID, pending.UserID)
	return pending, nil
}
