package view

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
	"shotzi/internal/optimistic"
	"shotzi/internal/reconcile"
)

// FeedSession is the live state behind the home feed: the post list plus
// like/comment counts and the viewer's own like flags, kept fresh from the
// change feed.
//
// Counts follow the recompute rule: a likes or comments event triggers a
// re-query of that post's count rather than a local increment, because the
// viewer's optimistic toggle and the feed event would otherwise both bump it.
type FeedSession struct {
	session
	deps     Deps
	viewerID int64

	posts         *optimistic.List[model.Post]
	likeCounts    *reconcile.Counters
	commentCounts *reconcile.Counters
	likeGuard     *optimistic.ToggleGuard

	stateMu   sync.Mutex
	liked     map[int64]bool
	summaries map[int64]model.UserSummary
}

// postRef is the minimal row shape decoded from likes/comments events.
type postRef struct {
	PostID int64 `json:"post_id"`
	UserID int64 `json:"user_id"`
}

// OpenFeed loads the feed and attaches its subscriptions. A failed load
// leaves the session open with empty state and Err set.
func OpenFeed(ctx context.Context, deps Deps, viewerID int64) *FeedSession {
	s := &FeedSession{
		deps:          deps,
		viewerID:      viewerID,
		posts:         optimistic.NewList(func(p model.Post) int64 { return p.ID }, 0),
		likeCounts:    reconcile.NewCounters(),
		commentCounts: reconcile.NewCounters(),
		likeGuard:     optimistic.NewToggleGuard(),
		liked:         make(map[int64]bool),
		summaries:     make(map[int64]model.UserSummary),
	}

	s.load(ctx)
	s.subscribe()
	return s
}

func (s *FeedSession) load(ctx context.Context) {
	posts, err := s.deps.Posts.GetAll(ctx, defaultLoadLimit, 0)
	if err != nil {
		s.fail(fmt.Errorf("load feed: %w", err))
		return
	}
	s.posts.Seed(posts)
	s.loadDerived(ctx, posts)
}

// LoadMore fetches the next window of older posts and appends them,
// infinite-scroll style. It returns how many new posts arrived; zero means
// the feed is exhausted. Posts that slid into the window because newer ones
// were inserted above are deduplicated by ID.
func (s *FeedSession) LoadMore(ctx context.Context) (int, error) {
	if !s.active() {
		return 0, nil
	}

	posts, err := s.deps.Posts.GetAll(ctx, defaultLoadLimit, s.posts.Len())
	if err != nil {
		return 0, fmt.Errorf("load more posts: %w", err)
	}

	added := 0
	fresh := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if s.posts.Ingest(p) {
			fresh = append(fresh, p)
			added++
		}
	}
	s.loadDerived(ctx, fresh)
	return added, nil
}

// loadDerived fills counts, liked flags and author summaries for a window of
// posts, merging into what earlier windows already loaded.
func (s *FeedSession) loadDerived(ctx context.Context, posts []model.Post) {
	if len(posts) == 0 {
		return
	}

	ids := make([]int64, len(posts))
	userIDs := make([]int64, 0, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		userIDs = append(userIDs, p.UserID)
	}

	if counts, err := s.deps.Posts.LikeCounts(ctx, ids); err == nil {
		for id, n := range counts {
			s.likeCounts.Replace(id, n)
		}
	} else {
		s.fail(fmt.Errorf("load like counts: %w", err))
	}
	if counts, err := s.deps.Comments.CommentCounts(ctx, ids); err == nil {
		for id, n := range counts {
			s.commentCounts.Replace(id, n)
		}
	} else {
		s.fail(fmt.Errorf("load comment counts: %w", err))
	}
	if liked, err := s.deps.Posts.LikedByUser(ctx, s.viewerID, ids); err == nil {
		s.stateMu.Lock()
		for id, v := range liked {
			s.liked[id] = v
		}
		s.stateMu.Unlock()
	} else {
		s.fail(fmt.Errorf("load liked flags: %w", err))
	}
	if summaries, err := s.deps.Users.GetSummaries(ctx, userIDs); err == nil {
		s.stateMu.Lock()
		for id, sum := range summaries {
			s.summaries[id] = sum
		}
		s.stateMu.Unlock()
	}
}

func (s *FeedSession) subscribe() {
	s.track(s.deps.Feed.Subscribe(changefeed.TablePosts, nil).
		On(changefeed.KindInsert, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var post model.Post
			if err := ev.DecodeNew(&post); err != nil {
				log.Printf("[Feed] post insert decode FAILED: %v", err)
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

	s.track(s.deps.Feed.Subscribe(changefeed.TableLikes, nil).
		On(changefeed.KindAll, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			ref, ok := decodeRef(ev)
			if !ok {
				return
			}
			s.recomputeLikes(context.Background(), ref)
		}))

	s.track(s.deps.Feed.Subscribe(changefeed.TableComments, nil).
		On(changefeed.KindAll, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			ref, ok := decodeRef(ev)
			if !ok {
				return
			}
			if count, err := s.deps.Comments.CommentCount(context.Background(), ref.PostID); err == nil {
				s.commentCounts.Replace(ref.PostID, count)
			}
		}))
}

// recomputeLikes re-queries the post's like count and, when the event was the
// viewer's own like from another tab, the liked flag too.
func (s *FeedSession) recomputeLikes(ctx context.Context, ref postRef) {
	if count, err := s.deps.Posts.LikeCount(ctx, ref.PostID); err == nil {
		s.likeCounts.Replace(ref.PostID, count)
	}
	if ref.UserID == s.viewerID {
		if liked, err := s.deps.Posts.LikedByUser(ctx, s.viewerID, []int64{ref.PostID}); err == nil {
			s.stateMu.Lock()
			s.liked[ref.PostID] = liked[ref.PostID]
			s.stateMu.Unlock()
		}
	}
}

// ToggleLike flips the viewer's like on a post. A second toggle for the same
// post while one is in flight returns ErrToggleInFlight.
func (s *FeedSession) ToggleLike(ctx context.Context, postID int64) error {
	return s.likeGuard.Do(postID, func() error {
		s.stateMu.Lock()
		wasLiked := s.liked[postID]
		// Optimistic flip; confirmed or reverted below
		s.liked[postID] = !wasLiked
		s.stateMu.Unlock()

		var err error
		if wasLiked {
			err = s.deps.Social.UnlikePost(ctx, s.viewerID, postID)
		} else {
			err = s.deps.Social.LikePost(ctx, s.viewerID, postID)
		}
		if err != nil {
			s.stateMu.Lock()
			s.liked[postID] = wasLiked
			s.stateMu.Unlock()
			return err
		}

		if count, err := s.deps.Posts.LikeCount(ctx, postID); err == nil {
			s.likeCounts.Replace(postID, count)
		}
		return nil
	})
}

// IsLiked reports the viewer's like flag for a post.
func (s *FeedSession) IsLiked(postID int64) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.liked[postID]
}

// Posts returns the current feed with derived fields populated.
func (s *FeedSession) Posts() []model.Post {
	entries := s.posts.Snapshot()

	s.stateMu.Lock()
	liked := make(map[int64]bool, len(s.liked))
	for id, v := range s.liked {
		liked[id] = v
	}
	summaries := s.summaries
	s.stateMu.Unlock()

	out := make([]model.Post, 0, len(entries))
	for _, e := range entries {
		p := e.Row
		p.LikeCount = s.likeCounts.Get(p.ID)
		p.CommentCount = s.commentCounts.Get(p.ID)
		p.IsLiked = liked[p.ID]
		p.DisplayName = DisplayName(summaries[p.UserID].Username, p.UserEmail, p.UserID)
		out = append(out, p)
	}
	return out
}

// decodeRef extracts the (post_id, user_id) pair an event refers to.
func decodeRef(ev changefeed.Event) (postRef, bool) {
	var ref postRef
	row := ev.Row()
	if len(row) == 0 {
		return ref, false
	}
	if err := json.Unmarshal(row, &ref); err != nil || ref.PostID == 0 {
		return ref, false
	}
	return ref, true
}
