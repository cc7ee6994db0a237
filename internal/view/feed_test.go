package view

import (
	"context"
	"sync"
	"testing"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
	"shotzi/internal/relay"
)

// mockPostRepo serves a fixed newest-first post list in windows, the way the
// real repository paginates.
type mockPostRepo struct {
	mu         sync.Mutex
	posts      []model.Post // newest first
	likeCounts map[int64]int
	getAllFn   func(limit, offset int) ([]model.Post, error)
	getAllArgs [][2]int
}

func (m *mockPostRepo) Create(ctx context.Context, userID int64, userEmail, imageURL string, caption *string) (*model.Post, error) {
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepo) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepo) GetAll(ctx context.Context, limit, offset int) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getAllArgs = append(m.getAllArgs, [2]int{limit, offset})
	if m.getAllFn != nil {
		return m.getAllFn(limit, offset)
	}
	if offset >= len(m.posts) {
		return []model.Post{}, nil
	}
	end := offset + limit
	if end > len(m.posts) {
		end = len(m.posts)
	}
	out := make([]model.Post, end-offset)
	copy(out, m.posts[offset:end])
	return out, nil
}

func (m *mockPostRepo) GetByUser(ctx context.Context, userID int64, limit int) ([]model.Post, error) {
	return nil, nil
}

func (m *mockPostRepo) Delete(ctx context.Context, postID, userID int64) error { return nil }

func (m *mockPostRepo) Like(ctx context.Context, postID, userID int64) (bool, error) {
	return true, nil
}

func (m *mockPostRepo) Unlike(ctx context.Context, postID, userID int64) (bool, error) {
	return true, nil
}

func (m *mockPostRepo) LikeCounts(ctx context.Context, postIDs []int64) (map[int64]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]int)
	for _, id := range postIDs {
		out[id] = m.likeCounts[id]
	}
	return out, nil
}

func (m *mockPostRepo) LikedByUser(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	return map[int64]bool{}, nil
}

func (m *mockPostRepo) LikeCount(ctx context.Context, postID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.likeCounts[postID], nil
}

// mockCommentRepo only serves counts; the feed never loads comment bodies.
type mockCommentRepo struct{}

func (m *mockCommentRepo) Create(ctx context.Context, postID, userID int64, userEmail, content string, parentID *int64) (*model.Comment, error) {
	return nil, model.ErrCommentNotFound
}

func (m *mockCommentRepo) GetByPostID(ctx context.Context, postID int64) ([]model.Comment, error) {
	return nil, nil
}

func (m *mockCommentRepo) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	return nil, model.ErrCommentNotFound
}

func (m *mockCommentRepo) Delete(ctx context.Context, commentID, userID int64) error { return nil }

func (m *mockCommentRepo) CommentCounts(ctx context.Context, postIDs []int64) (map[int64]int, error) {
	return map[int64]int{}, nil
}

func (m *mockCommentRepo) CommentCount(ctx context.Context, postID int64) (int, error) {
	return 0, nil
}

func (m *mockCommentRepo) LikeComment(ctx context.Context, commentID, userID int64) (bool, error) {
	return true, nil
}

func (m *mockCommentRepo) UnlikeComment(ctx context.Context, commentID, userID int64) (bool, error) {
	return true, nil
}

func (m *mockCommentRepo) CommentLikeCounts(ctx context.Context, commentIDs []int64) (map[int64]int, error) {
	return map[int64]int{}, nil
}

func (m *mockCommentRepo) CommentLikedByUser(ctx context.Context, userID int64, commentIDs []int64) (map[int64]bool, error) {
	return map[int64]bool{}, nil
}

func manyPosts(n int) []model.Post {
	posts := make([]model.Post, n)
	for i := range posts {
		// Newest first: IDs descend.
		posts[i] = model.Post{ID: int64(n - i), UserID: 1, UserEmail: "ansel@example.com"}
	}
	return posts
}

func feedDeps(posts *mockPostRepo) Deps {
	return Deps{
		Users:    &mockUserRepo{summaries: map[int64]model.UserSummary{}},
		Posts:    posts,
		Comments: &mockCommentRepo{},
		Feed:     changefeed.NewManager(changefeed.NewBus()),
		Relay:    relay.New(nil),
	}
}

func TestFeedSession_LoadMoreExtendsWindow(t *testing.T) {
	repo := &mockPostRepo{posts: manyPosts(defaultLoadLimit + 30)}
	deps := feedDeps(repo)

	s := OpenFeed(context.Background(), deps, 1)
	defer s.Close()

	if got := len(s.Posts()); got != defaultLoadLimit {
		t.Fatalf("initial posts = %d, want %d", got, defaultLoadLimit)
	}

	added, err := s.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("load more: %v", err)
	}
	if added != 30 {
		t.Errorf("added = %d, want 30", added)
	}
	if got := len(s.Posts()); got != defaultLoadLimit+30 {
		t.Errorf("posts = %d, want %d", got, defaultLoadLimit+30)
	}

	repo.mu.Lock()
	args := repo.getAllArgs
	repo.mu.Unlock()
	if len(args) != 2 || args[1] != [2]int{defaultLoadLimit, defaultLoadLimit} {
		t.Errorf("getAll calls = %v, want second window at offset %d", args, defaultLoadLimit)
	}
}

func TestFeedSession_LoadMoreExhausted(t *testing.T) {
	repo := &mockPostRepo{posts: manyPosts(5)}
	deps := feedDeps(repo)

	s := OpenFeed(context.Background(), deps, 1)
	defer s.Close()

	added, err := s.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("load more: %v", err)
	}
	if added != 0 {
		t.Errorf("added = %d, want 0 past the end", added)
	}
	if got := len(s.Posts()); got != 5 {
		t.Errorf("posts = %d, want 5", got)
	}
}

// New posts arriving above the fold shift older ones back into the next
// window; re-fetching that window must not duplicate what is already held.
func TestFeedSession_LoadMoreDeduplicatesShiftedPosts(t *testing.T) {
	repo := &mockPostRepo{posts: manyPosts(3)}
	deps := feedDeps(repo)

	s := OpenFeed(context.Background(), deps, 1)
	defer s.Close()

	// The second window overlaps the first by two posts and carries one new.
	repo.mu.Lock()
	repo.getAllFn = func(limit, offset int) ([]model.Post, error) {
		return []model.Post{
			{ID: 2, UserID: 1},
			{ID: 1, UserID: 1},
			{ID: 99, UserID: 1},
		}, nil
	}
	repo.mu.Unlock()

	added, err := s.LoadMore(context.Background())
	if err != nil {
		t.Fatalf("load more: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1 (overlapping rows must be dropped)", added)
	}

	seen := make(map[int64]bool)
	for _, p := range s.Posts() {
		if seen[p.ID] {
			t.Fatalf("post %d appears twice", p.ID)
		}
		seen[p.ID] = true
	}
	if !seen[99] {
		t.Error("the genuinely new post must be appended")
	}
}

func TestFeedSession_LoadMoreLoadsWindowCounts(t *testing.T) {
	repo := &mockPostRepo{
		posts:      manyPosts(defaultLoadLimit + 1),
		likeCounts: map[int64]int{1: 7}, // post 1 is the oldest, in the second window
	}
	deps := feedDeps(repo)

	s := OpenFeed(context.Background(), deps, 1)
	defer s.Close()

	if _, err := s.LoadMore(context.Background()); err != nil {
		t.Fatalf("load more: %v", err)
	}

	posts := s.Posts()
	last := posts[len(posts)-1]
	if last.ID != 1 {
		t.Fatalf("last post = %d, want 1", last.ID)
	}
	if last.LikeCount != 7 {
		t.Errorf("like count = %d, want 7 (derived state must cover the new window)", last.LikeCount)
	}
}
