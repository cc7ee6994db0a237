package view

import (
	"context"
	"fmt"
	"sync"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
	"shotzi/internal/optimistic"
)

// ProfileSession is the live state behind a user's profile: their posts,
// follower/following counts and the viewer's follow flag.
//
// Follow counts are recomputed (not patched) on every follows event touching
// the profile, since the viewer's own optimistic toggle can race the feed.
type ProfileSession struct {
	session
	deps      Deps
	viewerID  int64
	profileID int64

	posts       *optimistic.List[model.Post]
	followGuard *optimistic.ToggleGuard

	stateMu     sync.Mutex
	user        *model.User
	counts      model.FollowCounts
	isFollowing bool
}

// OpenProfile loads a profile and attaches subscriptions scoped to it.
func OpenProfile(ctx context.Context, deps Deps, viewerID, profileID int64) *ProfileSession {
	s := &ProfileSession{
		deps:        deps,
		viewerID:    viewerID,
		profileID:   profileID,
		posts:       optimistic.NewList(func(p model.Post) int64 { return p.ID }, 0),
		followGuard: optimistic.NewToggleGuard(),
	}

	s.load(ctx)
	s.subscribe()
	return s
}

func (s *ProfileSession) load(ctx context.Context) {
	user, err := s.deps.Users.GetByID(ctx, s.profileID)
	if err != nil {
		s.fail(fmt.Errorf("load profile: %w", err))
		return
	}

	posts, err := s.deps.Posts.GetByUser(ctx, s.profileID, defaultLoadLimit)
	if err != nil {
		s.fail(fmt.Errorf("load profile posts: %w", err))
	} else {
		s.posts.Seed(posts)
	}

	counts, err := s.deps.Follows.Counts(ctx, s.profileID)
	if err != nil {
		s.fail(fmt.Errorf("load follow counts: %w", err))
	}

	isFollowing := false
	if s.viewerID != s.profileID {
		if following, err := s.deps.Follows.Exists(ctx, s.viewerID, s.profileID); err == nil {
			isFollowing = following
		}
	}

	s.stateMu.Lock()
	s.user = user
	s.counts = counts
	s.isFollowing = isFollowing
	s.stateMu.Unlock()
}

func (s *ProfileSession) subscribe() {
	// Any edge touching this profile in either direction changes a count.
	filter := changefeed.Or(
		changefeed.Eq("follower_id", s.profileID),
		changefeed.Eq("following_id", s.profileID),
	)
	s.track(s.deps.Feed.Subscribe(changefeed.TableFollows, filter).
		On(changefeed.KindAll, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			s.recompute(context.Background())
		}))

	s.track(s.deps.Feed.Subscribe(changefeed.TablePosts, changefeed.Eq("user_id", s.profileID)).
		On(changefeed.KindInsert, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var post model.Post
			if err := ev.DecodeNew(&post); err != nil {
				return
			}
			s.posts.Ingest(post)
		}).
		On(changefeed.KindDelete, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var post model.Post
			if err := ev.DecodeOld(&post); err != nil {
				return
			}
			s.posts.Remove(post.ID)
		}))
}

// recompute re-queries follow counts and the viewer's follow flag.
func (s *ProfileSession) recompute(ctx context.Context) {
	counts, err := s.deps.Follows.Counts(ctx, s.profileID)
	if err != nil {
		return
	}

	isFollowing := false
	if s.viewerID != s.profileID {
		if following, err := s.deps.Follows.Exists(ctx, s.viewerID, s.profileID); err == nil {
			isFollowing = following
		}
	}

	s.stateMu.Lock()
	s.counts = counts
	s.isFollowing = isFollowing
	s.stateMu.Unlock()
}

// ToggleFollow flips the viewer's follow edge to this profile, one in flight
// at a time. Self-follow is rejected by the service.
func (s *ProfileSession) ToggleFollow(ctx context.Context) error {
	return s.followGuard.Do(s.profileID, func() error {
		s.stateMu.Lock()
		wasFollowing := s.isFollowing
		s.isFollowing = !wasFollowing
		s.stateMu.Unlock()

		var err error
		if wasFollowing {
			err = s.deps.Social.Unfollow(ctx, s.viewerID, s.profileID)
		} else {
			err = s.deps.Social.Follow(ctx, s.viewerID, s.profileID)
		}
		if err != nil {
			s.stateMu.Lock()
			s.isFollowing = wasFollowing
			s.stateMu.Unlock()
			return err
		}

		s.recompute(ctx)
		return nil
	})
}

// User returns the profile user, or nil after a failed load.
func (s *ProfileSession) User() *model.User {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.user
}

// Counts returns the current follower/following counts.
func (s *ProfileSession) Counts() model.FollowCounts {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.counts
}

// IsFollowing reports whether the viewer follows this profile.
func (s *ProfileSession) IsFollowing() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.isFollowing
}

// Posts returns the profile's posts with display names resolved.
func (s *ProfileSession) Posts() []model.Post {
	entries := s.posts.Snapshot()

	s.stateMu.Lock()
	username := ""
	if s.user != nil {
		username = s.user.Username
	}
	s.stateMu.Unlock()

	out := make([]model.Post, 0, len(entries))
	for _, e := range entries {
		p := e.Row
		p.DisplayName = DisplayName(username, p.UserEmail, p.UserID)
		out = append(out, p)
	}
	return out
}
