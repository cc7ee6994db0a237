package view

import (
	"testing"

	"shotzi/internal/model"
)

func i64(v int64) *int64 { return &v }

func TestBuildCommentTree_Nesting(t *testing.T) {
	comments := []model.Comment{
		{ID: 1, Content: "root a"},
		{ID: 2, Content: "root b"},
		{ID: 3, ParentID: i64(1), Content: "reply to a"},
		{ID: 4, ParentID: i64(3), Content: "reply to reply"},
		{ID: 5, ParentID: i64(1), Content: "second reply to a"},
	}

	tree := BuildCommentTree(comments)

	if len(tree) != 2 {
		t.Fatalf("roots = %d, want 2", len(tree))
	}
	if tree[0].Comment.ID != 1 || tree[1].Comment.ID != 2 {
		t.Errorf("root order = %d,%d, want 1,2", tree[0].Comment.ID, tree[1].Comment.ID)
	}

	a := tree[0]
	if len(a.Replies) != 2 {
		t.Fatalf("replies under 1 = %d, want 2", len(a.Replies))
	}
	if a.Replies[0].Comment.ID != 3 || a.Replies[1].Comment.ID != 5 {
		t.Errorf("reply order = %d,%d, want 3,5 (input order preserved)", a.Replies[0].Comment.ID, a.Replies[1].Comment.ID)
	}
	if len(a.Replies[0].Replies) != 1 || a.Replies[0].Replies[0].Comment.ID != 4 {
		t.Error("nested reply 4 missing under 3")
	}
}

func TestBuildCommentTree_MissingParentBecomesRoot(t *testing.T) {
	comments := []model.Comment{
		{ID: 1, Content: "root"},
		{ID: 2, ParentID: i64(99), Content: "orphan"},
	}

	tree := BuildCommentTree(comments)

	if len(tree) != 2 {
		t.Fatalf("roots = %d, want 2 (orphans surface as roots, never dropped)", len(tree))
	}
	if tree[1].Comment.ID != 2 {
		t.Errorf("second root = %d, want the orphan", tree[1].Comment.ID)
	}
}

func TestBuildCommentTree_Empty(t *testing.T) {
	if tree := BuildCommentTree(nil); len(tree) != 0 {
		t.Errorf("tree = %v, want empty", tree)
	}
}
