package view

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"shotzi/internal/changefeed"
	"shotzi/internal/model"
	"shotzi/internal/optimistic"
	"shotzi/internal/reconcile"
)

// CommentNode is one comment with its replies nested beneath it.
type CommentNode struct {
	Comment model.Comment  `json:"comment"`
	Replies []*CommentNode `json:"replies,omitempty"`
}

// BuildCommentTree nests a flat comment list by parent ID, unbounded depth.
// Input order is preserved at every level. Comments whose parent is missing
// from the input are treated as roots rather than dropped.
func BuildCommentTree(comments []model.Comment) []*CommentNode {
	byParent := make(map[int64][]model.Comment)
	present := make(map[int64]bool, len(comments))
	for _, c := range comments {
		present[c.ID] = true
	}

	var roots []model.Comment
	for _, c := range comments {
		if c.ParentID != nil && present[*c.ParentID] {
			byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
		} else {
			roots = append(roots, c)
		}
	}

	var build func(list []model.Comment) []*CommentNode
	build = func(list []model.Comment) []*CommentNode {
		nodes := make([]*CommentNode, 0, len(list))
		for _, c := range list {
			nodes = append(nodes, &CommentNode{
				Comment: c,
				Replies: build(byParent[c.ID]),
			})
		}
		return nodes
	}
	return build(roots)
}

// PostDetailSession is the live state behind a single post page: the post,
// its comment tree, comment like counts and the viewer's like flags.
type PostDetailSession struct {
	session
	deps     Deps
	viewerID int64
	postID   int64

	comments          *optimistic.List[model.Comment]
	commentLikeCounts *reconcile.Counters
	likeGuard         *optimistic.ToggleGuard

	stateMu       sync.Mutex
	post          *model.Post
	commentsLiked map[int64]bool
	summaries     map[int64]model.UserSummary
}

// OpenPostDetail loads one post and attaches subscriptions scoped to it.
func OpenPostDetail(ctx context.Context, deps Deps, viewerID, postID int64) *PostDetailSession {
	s := &PostDetailSession{
		deps:              deps,
		viewerID:          viewerID,
		postID:            postID,
		comments:          optimistic.NewList(func(c model.Comment) int64 { return c.ID }, 0),
		commentLikeCounts: reconcile.NewCounters(),
		likeGuard:         optimistic.NewToggleGuard(),
		commentsLiked:     make(map[int64]bool),
		summaries:         make(map[int64]model.UserSummary),
	}

	s.load(ctx)
	s.subscribe()
	return s
}

func (s *PostDetailSession) load(ctx context.Context) {
	post, err := s.deps.Posts.GetByID(ctx, s.postID)
	if err != nil {
		s.fail(fmt.Errorf("load post: %w", err))
		return
	}
	s.stateMu.Lock()
	s.post = post
	s.stateMu.Unlock()

	comments, err := s.deps.Comments.GetByPostID(ctx, s.postID)
	if err != nil {
		s.fail(fmt.Errorf("load comments: %w", err))
		return
	}
	s.comments.Seed(comments)

	commentIDs := make([]int64, len(comments))
	userIDs := []int64{post.UserID}
	for i, c := range comments {
		commentIDs[i] = c.ID
		userIDs = append(userIDs, c.UserID)
	}

	if counts, err := s.deps.Comments.CommentLikeCounts(ctx, commentIDs); err == nil {
		s.commentLikeCounts.ReplaceAll(counts)
	}
	if liked, err := s.deps.Comments.CommentLikedByUser(ctx, s.viewerID, commentIDs); err == nil {
		s.stateMu.Lock()
		s.commentsLiked = liked
		s.stateMu.Unlock()
	}
	if summaries, err := s.deps.Users.GetSummaries(ctx, userIDs); err == nil {
		s.stateMu.Lock()
		s.summaries = summaries
		s.stateMu.Unlock()
	}
}

func (s *PostDetailSession) subscribe() {
	s.track(s.deps.Feed.Subscribe(changefeed.TableComments, changefeed.Eq("post_id", s.postID)).
		On(changefeed.KindInsert, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var c model.Comment
			if err := ev.DecodeNew(&c); err != nil {
				return
			}
			s.comments.Ingest(c)
		}).
		On(changefeed.KindDelete, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var c model.Comment
			if err := ev.DecodeOld(&c); err != nil {
				return
			}
			s.comments.Remove(c.ID)
		}))

	s.track(s.deps.Feed.Subscribe(changefeed.TableCommentLikes, nil).
		On(changefeed.KindAll, func(ev changefeed.Event) {
			if !s.active() {
				return
			}
			var ref struct {
				CommentID int64 `json:"comment_id"`
				UserID    int64 `json:"user_id"`
			}
			if err := json.Unmarshal(ev.Row(), &ref); err != nil || ref.CommentID == 0 {
				return
			}
			ctx := context.Background()
			if counts, err := s.deps.Comments.CommentLikeCounts(ctx, []int64{ref.CommentID}); err == nil {
				s.commentLikeCounts.Replace(ref.CommentID, counts[ref.CommentID])
			}
			if ref.UserID == s.viewerID {
				if liked, err := s.deps.Comments.CommentLikedByUser(ctx, s.viewerID, []int64{ref.CommentID}); err == nil {
					s.stateMu.Lock()
					s.commentsLiked[ref.CommentID] = liked[ref.CommentID]
					s.stateMu.Unlock()
				}
			}
		}))
}

// AddComment posts a comment optimistically: it appears in the tree
// immediately as Pending and settles when the write returns.
func (s *PostDetailSession) AddComment(ctx context.Context, content string, parentID *int64) (string, error) {
	row := model.Comment{
		PostID:   s.postID,
		UserID:   s.viewerID,
		Content:  content,
		ParentID: parentID,
	}
	return s.comments.Perform(ctx, row, func(ctx context.Context) (model.Comment, error) {
		created, err := s.deps.Social.Comment(ctx, s.viewerID, s.postID, content, parentID)
		if err != nil {
			return model.Comment{}, err
		}
		return *created, nil
	})
}

// RetryComment re-attempts a failed comment without duplicating it.
func (s *PostDetailSession) RetryComment(ctx context.Context, tempID string) error {
	return s.comments.Retry(ctx, tempID)
}

// DeleteComment removes the viewer's comment. Comments with replies are
// rejected by the repository.
func (s *PostDetailSession) DeleteComment(ctx context.Context, commentID int64) error {
	return s.deps.Social.DeleteComment(ctx, s.viewerID, commentID)
}

// ToggleCommentLike flips the viewer's like on a comment, one in flight per
// comment.
func (s *PostDetailSession) ToggleCommentLike(ctx context.Context, commentID int64) error {
	return s.likeGuard.Do(commentID, func() error {
		s.stateMu.Lock()
		wasLiked := s.commentsLiked[commentID]
		s.commentsLiked[commentID] = !wasLiked
		s.stateMu.Unlock()

		var err error
		if wasLiked {
			err = s.deps.Social.UnlikeComment(ctx, s.viewerID, commentID)
		} else {
			err = s.deps.Social.LikeComment(ctx, s.viewerID, commentID)
		}
		if err != nil {
			s.stateMu.Lock()
			s.commentsLiked[commentID] = wasLiked
			s.stateMu.Unlock()
			return err
		}

		if counts, err := s.deps.Comments.CommentLikeCounts(ctx, []int64{commentID}); err == nil {
			s.commentLikeCounts.Replace(commentID, counts[commentID])
		}
		return nil
	})
}

// Post returns the post with its display name resolved, or nil after a
// failed load.
func (s *PostDetailSession) Post() *model.Post {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.post == nil {
		return nil
	}
	p := *s.post
	p.DisplayName = DisplayName(s.summaries[p.UserID].Username, p.UserEmail, p.UserID)
	return &p
}

// CommentTree returns the current comments as a nested tree with derived
// fields populated. Pending and failed entries are included in place.
func (s *PostDetailSession) CommentTree() []*CommentNode {
	entries := s.comments.Snapshot()

	s.stateMu.Lock()
	liked := make(map[int64]bool, len(s.commentsLiked))
	for id, v := range s.commentsLiked {
		liked[id] = v
	}
	summaries := s.summaries
	s.stateMu.Unlock()

	flat := make([]model.Comment, 0, len(entries))
	for _, e := range entries {
		c := e.Row
		if e.State == optimistic.StateCommitted {
			c.ID = e.ID
		}
		c.LikeCount = s.commentLikeCounts.Get(c.ID)
		c.IsLiked = liked[c.ID]
		c.DisplayName = DisplayName(summaries[c.UserID].Username, c.UserEmail, c.UserID)
		flat = append(flat, c)
	}
	return BuildCommentTree(flat)
}
