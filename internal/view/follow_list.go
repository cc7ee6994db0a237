package view

import (
	"context"
	"fmt"
	"sync"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
)

// FollowKind selects which side of the follow graph a listing shows.
type FollowKind string

const (
	// FollowersList shows who follows the profile.
	FollowersList FollowKind = "followers"
	// FollowingList shows who the profile follows.
	FollowingList FollowKind = "following"
)

// FollowListSession is the live state behind a profile's followers or
// following page. Edge inserts and deletes reload the roster wholesale:
// either side of the edge can belong to another viewer's action, so a
// recompute is the only update that cannot drift.
type FollowListSession struct {
	session
	deps      Deps
	profileID int64
	kind      FollowKind

	stateMu sync.Mutex
	users   []model.UserSummary
}

// OpenFollowList loads one side of a profile's follow graph and subscribes
// to the edges that change it.
func OpenFollowList(ctx context.Context, deps Deps, profileID int64, kind FollowKind) *FollowListSession {
	s := &FollowListSession{
		deps:      deps,
		profileID: profileID,
		kind:      kind,
	}

	s.load(ctx)
	s.subscribe()
	return s
}

func (s *FollowListSession) load(ctx context.Context) {
	var (
		ids []int64
		err error
	)
	if s.kind == FollowingList {
		ids, err = s.deps.Follows.GetFollowingIDs(ctx, s.profileID)
	} else {
		ids, err = s.deps.Follows.GetFollowerIDs(ctx, s.profileID)
	}
	if err != nil {
		s.fail(fmt.Errorf("load %s: %w", s.kind, err))
		return
	}

	summaries, err := s.deps.Users.GetSummaries(ctx, ids)
	if err != nil {
		s.fail(fmt.Errorf("load %s profiles: %w", s.kind, err))
		return
	}

	// Deleted accounts are absent from the summary map and drop out of the
	// listing rather than rendering as blanks.
	users := make([]model.UserSummary, 0, len(ids))
	for _, id := range ids {
		if sum, ok := summaries[id]; ok {
			users = append(users, sum)
		}
	}

	s.stateMu.Lock()
	s.users = users
	s.stateMu.Unlock()
}

func (s *FollowListSession) subscribe() {
	edgeColumn := "following_id"
	if s.kind == FollowingList {
		edgeColumn = "follower_id"
	}

	s.track(s.deps.Feed.Subscribe(changefeed.TableFollows, changefeed.Eq(edgeColumn, s.profileID)).
		On(changefeed.KindAll, func(changefeed.Event) {
			if !s.active() {
				return
			}
			s.load(context.Background())
		}))
}

// Users returns the current listing in follow-edge order.
func (s *FollowListSession) Users() []model.UserSummary {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	out := make([]model.UserSummary, len(s.users))
	copy(out, s.users)
	return out
}
