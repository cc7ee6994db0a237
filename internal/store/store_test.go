package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"shotzi/internal/changefeed"
)

type noteRow struct {
	ID      int64  `db:"id" json:"id"`
	UserID  int64  `db:"user_id" json:"user_id"`
	Message string `db:"message" json:"message"`
	Read    bool   `db:"read" json:"read"`
}

// recordingFeed captures published change events for assertions.
type recordingFeed struct {
	events []changefeed.Event
}

func (f *recordingFeed) Publish(_ context.Context, ev changefeed.Event) error {
	f.events = append(f.events, ev)
	return nil
}

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock, *recordingFeed) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	feed := &recordingFeed{}
	return New(sqlx.NewDb(db, "sqlmock"), feed), mock, feed
}

func TestStore_SelectRendersFilters(t *testing.T) {
	s, mock, _ := newTestStore(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "message", "read"}).
		AddRow(2, 1, "second", false).
		AddRow(1, 1, "first", false)
	mock.ExpectQuery("SELECT * FROM notifications WHERE user_id = $1 AND read = $2 ORDER BY id DESC").
		WithArgs(int64(1), false).
		WillReturnRows(rows)

	var got []noteRow
	q := From("notifications").Eq("user_id", int64(1)).Eq("read", false).OrderBy("id", Desc)
	if err := s.Select(context.Background(), q, &got); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 {
		t.Errorf("got %+v, want two rows newest first", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_InsertPublishesInsertEvent(t *testing.T) {
	s, mock, feed := newTestStore(t)

	// Columns render in sorted order.
	mock.ExpectQuery("INSERT INTO notifications (message, read, user_id) VALUES ($1, $2, $3) RETURNING *").
		WithArgs("hello", false, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "message", "read"}).
			AddRow(11, 7, "hello", false))

	var got noteRow
	err := s.Insert(context.Background(), "notifications", map[string]any{
		"user_id": int64(7),
		"message": "hello",
		"read":    false,
	}, &got)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got.ID != 11 {
		t.Errorf("id = %d, want 11", got.ID)
	}

	if len(feed.events) != 1 {
		t.Fatalf("published events = %d, want 1", len(feed.events))
	}
	ev := feed.events[0]
	if ev.Table != "notifications" || ev.Kind != changefeed.KindInsert {
		t.Errorf("event = %s/%s, want notifications/insert", ev.Table, ev.Kind)
	}
	var published noteRow
	if err := ev.DecodeNew(&published); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if published.ID != 11 {
		t.Errorf("event row id = %d, want the authoritative row", published.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_InsertFailurePublishesNothing(t *testing.T) {
	s, mock, feed := newTestStore(t)

	mock.ExpectQuery("INSERT INTO notifications (message, user_id) VALUES ($1, $2) RETURNING *").
		WithArgs("x", int64(1)).
		WillReturnError(context.DeadlineExceeded)

	var got noteRow
	err := s.Insert(context.Background(), "notifications", map[string]any{
		"user_id": int64(1), "message": "x",
	}, &got)
	if err == nil {
		t.Fatal("expected insert error")
	}
	if len(feed.events) != 0 {
		t.Errorf("published events = %d, want 0 (failed writes must not hit the feed)", len(feed.events))
	}
}

func TestStore_UpdatePublishesCallerRow(t *testing.T) {
	s, mock, feed := newTestStore(t)

	mock.ExpectExec("UPDATE notifications SET read = $1 WHERE id = $2 AND user_id = $3").
		WithArgs(true, int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	newRow := map[string]any{"id": int64(5), "user_id": int64(7), "read": true}
	err := s.Update(context.Background(), "notifications",
		map[string]any{"read": true},
		map[string]any{"id": int64(5), "user_id": int64(7)},
		newRow)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(feed.events) != 1 || feed.events[0].Kind != changefeed.KindUpdate {
		t.Fatalf("events = %+v, want one update", feed.events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_DeletePublishesOldRow(t *testing.T) {
	s, mock, feed := newTestStore(t)

	mock.ExpectExec("DELETE FROM likes WHERE post_id = $1 AND user_id = $2").
		WithArgs(int64(3), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	oldRow := map[string]any{"post_id": int64(3), "user_id": int64(4)}
	err := s.Delete(context.Background(), "likes",
		map[string]any{"post_id": int64(3), "user_id": int64(4)}, oldRow)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(feed.events) != 1 {
		t.Fatalf("events = %d, want 1", len(feed.events))
	}
	ev := feed.events[0]
	if ev.Kind != changefeed.KindDelete {
		t.Errorf("kind = %s, want delete", ev.Kind)
	}
	if len(ev.New) != 0 || len(ev.Old) == 0 {
		t.Error("delete event should carry only the old row")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_Count(t *testing.T) {
	s, mock, _ := newTestStore(t)

	mock.ExpectQuery("SELECT COUNT(*) FROM likes WHERE post_id = $1").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := s.Count(context.Background(), From("likes").Eq("post_id", int64(9)))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 4 {
		t.Errorf("count = %d, want 4", n)
	}
}

func TestStore_NilFeedSkipsPublication(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	s := New(sqlx.NewDb(db, "sqlmock"), nil)

	mock.ExpectExec("DELETE FROM likes WHERE post_id = $1").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Delete(context.Background(), "likes", map[string]any{"post_id": int64(1)}, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
