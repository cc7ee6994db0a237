package view

import (
	"context"
	"sync"
	"testing"
	"time"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
	"shotzi/internal/relay"
)

// mockFollowRepo holds follow edges as (follower, following) pairs so a
// feed-triggered reload observes mutations made between events.
type mockFollowRepo struct {
	mu    sync.Mutex
	edges [][2]int64
}

func (m *mockFollowRepo) add(followerID, followingID int64) {
	m.mu.Lock()
	m.edges = append(m.edges, [2]int64{followerID, followingID})
	m.mu.Unlock()
}

func (m *mockFollowRepo) remove(followerID, followingID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.edges {
		if e == [2]int64{followerID, followingID} {
			m.edges = append(m.edges[:i], m.edges[i+1:]...)
			return
		}
	}
}

func (m *mockFollowRepo) Create(ctx context.Context, followerID, followingID int64) (bool, error) {
	m.add(followerID, followingID)
	return true, nil
}

func (m *mockFollowRepo) Delete(ctx context.Context, followerID, followingID int64) (bool, error) {
	m.remove(followerID, followingID)
	return true, nil
}

func (m *mockFollowRepo) Exists(ctx context.Context, followerID, followingID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.edges {
		if e == [2]int64{followerID, followingID} {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockFollowRepo) Counts(ctx context.Context, userID int64) (model.FollowCounts, error) {
	var counts model.FollowCounts
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.edges {
		if e[1] == userID {
			counts.Followers++
		}
		if e[0] == userID {
			counts.Following++
		}
	}
	return counts, nil
}

func (m *mockFollowRepo) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, e := range m.edges {
		if e[1] == userID {
			ids = append(ids, e[0])
		}
	}
	return ids, nil
}

func (m *mockFollowRepo) GetFollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, e := range m.edges {
		if e[0] == userID {
			ids = append(ids, e[1])
		}
	}
	return ids, nil
}

// mockUserRepo serves summaries for a fixed set of accounts.
type mockUserRepo struct {
	summaries map[int64]model.UserSummary
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepo) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	out := make(map[int64]model.UserSummary)
	for _, id := range ids {
		if sum, ok := m.summaries[id]; ok {
			out[id] = sum
		}
	}
	return out, nil
}

func (m *mockUserRepo) TouchLastActive(ctx context.Context, userID int64, at time.Time) error {
	return nil
}

func followListDeps(follows *mockFollowRepo, users *mockUserRepo) (Deps, *changefeed.Bus) {
	bus := changefeed.NewBus()
	return Deps{
		Users:   users,
		Follows: follows,
		Feed:    changefeed.NewManager(bus),
		Relay:   relay.New(nil),
	}, bus
}

func publishFollow(t *testing.T, bus *changefeed.Bus, kind changefeed.Kind, followerID, followingID int64) {
	t.Helper()
	row := map[string]any{"follower_id": followerID, "following_id": followingID}
	var newRow, oldRow any = row, nil
	if kind == changefeed.KindDelete {
		newRow, oldRow = nil, row
	}
	ev, err := changefeed.NewEvent(changefeed.TableFollows, kind, newRow, oldRow)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	if err := bus.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestFollowListSession_SeedsFollowers(t *testing.T) {
	follows := &mockFollowRepo{}
	follows.add(2, 1)
	follows.add(3, 1)
	follows.add(1, 4) // profile 1 following someone, not a follower
	users := &mockUserRepo{summaries: map[int64]model.UserSummary{
		2: {ID: 2, Username: "ansel"},
		3: {ID: 3, Username: "berenice"},
		4: {ID: 4, Username: "dorothea"},
	}}
	deps, _ := followListDeps(follows, users)

	s := OpenFollowList(context.Background(), deps, 1, FollowersList)
	defer s.Close()

	if err := s.Err(); err != nil {
		t.Fatalf("session error: %v", err)
	}
	got := s.Users()
	if len(got) != 2 {
		t.Fatalf("users = %d, want 2", len(got))
	}
	if got[0].ID != 2 || got[1].ID != 3 {
		t.Errorf("roster = %d,%d, want 2,3 in edge order", got[0].ID, got[1].ID)
	}
}

func TestFollowListSession_SeedsFollowing(t *testing.T) {
	follows := &mockFollowRepo{}
	follows.add(1, 4)
	follows.add(2, 1) // a follower, not someone profile 1 follows
	users := &mockUserRepo{summaries: map[int64]model.UserSummary{
		2: {ID: 2, Username: "ansel"},
		4: {ID: 4, Username: "dorothea"},
	}}
	deps, _ := followListDeps(follows, users)

	s := OpenFollowList(context.Background(), deps, 1, FollowingList)
	defer s.Close()

	got := s.Users()
	if len(got) != 1 || got[0].ID != 4 {
		t.Errorf("roster = %+v, want just user 4", got)
	}
}

func TestFollowListSession_EdgeInsertReloads(t *testing.T) {
	follows := &mockFollowRepo{}
	users := &mockUserRepo{summaries: map[int64]model.UserSummary{
		2: {ID: 2, Username: "ansel"},
	}}
	deps, bus := followListDeps(follows, users)

	s := OpenFollowList(context.Background(), deps, 1, FollowersList)
	defer s.Close()

	if len(s.Users()) != 0 {
		t.Fatal("expected an empty roster before the follow")
	}

	follows.add(2, 1)
	publishFollow(t, bus, changefeed.KindInsert, 2, 1)

	waitFor(t, "roster reload", func() bool { return len(s.Users()) == 1 })
	if got := s.Users(); got[0].Username != "ansel" {
		t.Errorf("user = %+v, want the new follower's summary", got[0])
	}
}

func TestFollowListSession_EdgeDeleteReloads(t *testing.T) {
	follows := &mockFollowRepo{}
	follows.add(2, 1)
	users := &mockUserRepo{summaries: map[int64]model.UserSummary{
		2: {ID: 2, Username: "ansel"},
	}}
	deps, bus := followListDeps(follows, users)

	s := OpenFollowList(context.Background(), deps, 1, FollowersList)
	defer s.Close()

	follows.remove(2, 1)
	publishFollow(t, bus, changefeed.KindDelete, 2, 1)

	waitFor(t, "unfollow reload", func() bool { return len(s.Users()) == 0 })
}

func TestFollowListSession_OtherProfilesEdgesIgnored(t *testing.T) {
	follows := &mockFollowRepo{}
	users := &mockUserRepo{summaries: map[int64]model.UserSummary{
		2: {ID: 2, Username: "ansel"},
		3: {ID: 3, Username: "berenice"},
	}}
	deps, bus := followListDeps(follows, users)

	s := OpenFollowList(context.Background(), deps, 1, FollowersList)
	defer s.Close()

	// An edge toward another profile, then one toward ours: once the second
	// lands we know the first was filtered out rather than still in flight.
	publishFollow(t, bus, changefeed.KindInsert, 3, 9)
	follows.add(2, 1)
	publishFollow(t, bus, changefeed.KindInsert, 2, 1)

	waitFor(t, "own edge", func() bool { return len(s.Users()) == 1 })
	if got := s.Users(); got[0].ID != 2 {
		t.Errorf("roster = %+v, want only profile 1's follower", got)
	}
}
