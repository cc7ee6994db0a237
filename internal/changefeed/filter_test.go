package changefeed

import "testing"

func mustEvent(t *testing.T, table string, kind Kind, newRow, oldRow any) Event {
	t.Helper()
	ev, err := NewEvent(table, kind, newRow, oldRow)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	return ev
}

func TestFilter_NilMatchesEverything(t *testing.T) {
	ev := mustEvent(t, TablePosts, KindInsert, map[string]any{"id": 1}, nil)

	var f *Filter
	if !f.Matches(ev) {
		t.Error("nil filter should match every event")
	}
}

func TestFilter_Eq(t *testing.T) {
	ev := mustEvent(t, TableComments, KindInsert, map[string]any{
		"id":      int64(7),
		"post_id": int64(42),
		"read":    false,
	}, nil)

	tests := []struct {
		name   string
		filter *Filter
		want   bool
	}{
		{"matching int column", Eq("post_id", int64(42)), true},
		{"matching int literal", Eq("post_id", 42), true},
		{"mismatched value", Eq("post_id", 43), false},
		{"missing column", Eq("user_id", 1), false},
		{"matching bool", Eq("read", false), true},
		{"mismatched bool", Eq("read", true), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(ev); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_EqStringColumn(t *testing.T) {
	ev := mustEvent(t, TablePendingPosts, KindUpdate, map[string]any{
		"id":     int64(3),
		"status": "approved",
	}, nil)

	if !Eq("status", "approved").Matches(ev) {
		t.Error("expected string equality to match")
	}
	if Eq("status", "pending").Matches(ev) {
		t.Error("expected mismatched string to not match")
	}
}

func TestFilter_And(t *testing.T) {
	ev := mustEvent(t, TableDirectMessages, KindInsert, map[string]any{
		"sender_id":    int64(1),
		"recipient_id": int64(2),
	}, nil)

	if !And(Eq("sender_id", 1), Eq("recipient_id", 2)).Matches(ev) {
		t.Error("expected both equalities to match")
	}
	if And(Eq("sender_id", 1), Eq("recipient_id", 3)).Matches(ev) {
		t.Error("one failing equality should fail the whole AND")
	}
}

// The two-group OR is the conversation scoping shape: messages between a and
// b, in either direction, and nothing else.
func TestFilter_OrConversationPair(t *testing.T) {
	pair := Or(
		And(Eq("sender_id", 1), Eq("recipient_id", 2)),
		And(Eq("sender_id", 2), Eq("recipient_id", 1)),
	)

	sent := mustEvent(t, TableDirectMessages, KindInsert, map[string]any{
		"sender_id": int64(1), "recipient_id": int64(2),
	}, nil)
	received := mustEvent(t, TableDirectMessages, KindInsert, map[string]any{
		"sender_id": int64(2), "recipient_id": int64(1),
	}, nil)
	other := mustEvent(t, TableDirectMessages, KindInsert, map[string]any{
		"sender_id": int64(1), "recipient_id": int64(3),
	}, nil)

	if !pair.Matches(sent) {
		t.Error("expected outgoing message to match")
	}
	if !pair.Matches(received) {
		t.Error("expected incoming message to match")
	}
	if pair.Matches(other) {
		t.Error("message of a different conversation should not match")
	}
}

func TestFilter_DeleteMatchesOldRow(t *testing.T) {
	ev := mustEvent(t, TableLikes, KindDelete, nil, map[string]any{
		"post_id": int64(9),
		"user_id": int64(4),
	})

	if !Eq("post_id", 9).Matches(ev) {
		t.Error("delete events should match against the old row")
	}
}

func TestFilter_UnparseableRowNeverMatches(t *testing.T) {
	ev := Event{Table: TablePosts, Kind: KindInsert, New: []byte("not json")}

	if Eq("id", 1).Matches(ev) {
		t.Error("unparseable row should never match")
	}
	if Eq("id", 1).Matches(Event{Table: TablePosts, Kind: KindInsert}) {
		t.Error("rowless event should never match a non-nil filter")
	}
}
