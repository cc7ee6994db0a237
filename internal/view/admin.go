package view

import (
	"context"
	"fmt"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
	"shotzi/internal/optimistic"
)

// AdminQueueSession is the live state behind the moderation queue: posts
// still awaiting a verdict. A verdict in any tab removes the row here via
// the pending_posts update event.
type AdminQueueSession struct {
	session
	deps    Deps
	adminID int64

	pending *optimistic.List[model.PendingPost]
}

// OpenAdminQueue loads the pending queue and attaches its subscription.
// The caller must have verified admin privileges already.
func OpenAdminQueue(ctx context.Context, deps Deps, adminID int64) *AdminQueueSession {
	s := &AdminQueueSession{
		deps:    deps,
		adminID: adminID,
		pending: optimistic.NewList(func(p model.PendingPost) int64 { return p.ID }, 0),
	}

	s.load(ctx)
	s.subscribe()
	return s
}

func (s *AdminQueueSession) load(ctx context.Context) {
	pending, err := s.deps.Pending.GetPending(ctx, defaultLoadLimit)
	if err != nil {
		s.fail(fmt.Errorf("load pending queue: %w", err))
		return
	}
	s.pending.Seed(pending)
}

func (s *AdminQueueSession) subscribe() {
	s.track(s.deps.Feed.Subscribe(changefeed.TablePendingPosts, nil).
		On(changefeed.KindInsert, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var p model.PendingPost
			if err := ev.DecodeNew(&p); err != nil || p.Status != model.PendingStatusPending {
				return
			}
			s.pending.Ingest(p)
		}).
		On(changefeed.KindUpdate, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var p model.PendingPost
			if err := ev.DecodeNew(&p); err != nil {
				return
			}
			// A verdict moves the row out of the queue
			if p.Status != model.PendingStatusPending {
				s.pending.Remove(p.ID)
			}
		}))
}

// Approve publishes a pending post. The row leaves the queue immediately;
// a second verdict in another tab fails with ErrAlreadyModerated.
func (s *AdminQueueSession) Approve(ctx context.Context, pendingID int64) (*model.Post, error) {
	post, err := s.deps.Moderation.Approve(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	s.pending.Remove(pendingID)
	return post, nil
}

// Reject declines a pending post.
func (s *AdminQueueSession) Reject(ctx context.Context, pendingID int64) (*model.PendingPost, error) {
	rejected, err := s.deps.Moderation.Reject(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	s.pending.Remove(pendingID)
	return rejected, nil
}

// Pending returns the posts still awaiting a verdict, with display names.
func (s *AdminQueueSession) Pending() []model.PendingPost {
	entries := s.pending.Snapshot()
	out := make([]model.PendingPost, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Row)
	}
	return out
}
