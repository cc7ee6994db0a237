package store

import (
	"reflect"
	"testing"
)

func TestQuery_SQL(t *testing.T) {
	tests := []struct {
		name     string
		query    *Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "bare select",
			query:   From("posts"),
			wantSQL: "SELECT * FROM posts",
		},
		{
			name:     "projection and equality",
			query:    From("users").Columns("id", "username").Eq("id", int64(7)),
			wantSQL:  "SELECT id, username FROM users WHERE id = $1",
			wantArgs: []any{int64(7)},
		},
		{
			name:     "multiple conditions AND together",
			query:    From("notifications").Eq("user_id", int64(1)).Eq("read", false),
			wantSQL:  "SELECT * FROM notifications WHERE user_id = $1 AND read = $2",
			wantArgs: []any{int64(1), false},
		},
		{
			name:     "membership",
			query:    From("likes").In("post_id", int64(1), int64(2), int64(3)),
			wantSQL:  "SELECT * FROM likes WHERE post_id IN ($1, $2, $3)",
			wantArgs: []any{int64(1), int64(2), int64(3)},
		},
		{
			name:    "empty membership matches nothing",
			query:   From("likes").In("post_id"),
			wantSQL: "SELECT * FROM likes WHERE FALSE",
		},
		{
			name:     "order and limit",
			query:    From("comments").Eq("post_id", int64(5)).OrderBy("created_at", Desc).Limit(20),
			wantSQL:  "SELECT * FROM comments WHERE post_id = $1 ORDER BY created_at DESC LIMIT 20",
			wantArgs: []any{int64(5)},
		},
		{
			name:     "pagination window",
			query:    From("posts").OrderBy("created_at", Desc).Limit(30).Offset(60),
			wantSQL:  "SELECT * FROM posts ORDER BY created_at DESC LIMIT 30 OFFSET 60",
			wantArgs: nil,
		},
		{
			name:     "range bounds",
			query:    From("direct_messages").Gte("id", int64(10)).Lt("id", int64(20)),
			wantSQL:  "SELECT * FROM direct_messages WHERE id >= $1 AND id < $2",
			wantArgs: []any{int64(10), int64(20)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.query.SQL()
			if err != nil {
				t.Fatalf("SQL: %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if len(tt.wantArgs) == 0 && len(args) == 0 {
				return
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestQuery_SQLRequiresTable(t *testing.T) {
	if _, _, err := (&Query{}).SQL(); err == nil {
		t.Error("expected error for query without table")
	}
}

func TestQuery_CountSQLIgnoresProjectionAndOrder(t *testing.T) {
	q := From("likes").Columns("id").Eq("post_id", int64(3)).OrderBy("id", Desc).Limit(5)

	sql, args, err := q.renderCountSQL()
	if err != nil {
		t.Fatalf("renderCountSQL: %v", err)
	}
	want := "SELECT COUNT(*) FROM likes WHERE post_id = $1"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != int64(3) {
		t.Errorf("args = %v, want [3]", args)
	}
}
