package optimistic

import (
	"context"
	"errors"
	"testing"
)

type row struct {
	ID   int64
	Text string
}

func rowID(r row) int64 { return r.ID }

func newTestList(limit int) *List[row] {
	return NewList[row](rowID, limit)
}

func TestList_PerformCommitsInPlace(t *testing.T) {
	l := newTestList(0)
	l.Seed([]row{{ID: 1, Text: "first"}})

	tempID, err := l.Perform(context.Background(), row{Text: "second"}, func(context.Context) (row, error) {
		return row{ID: 2, Text: "second"}, nil
	})
	if err != nil {
		t.Fatalf("perform: %v", err)
	}
	if tempID == "" {
		t.Fatal("expected a temp ID")
	}

	entries := l.Snapshot()
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	got := entries[1]
	if got.State != StateCommitted {
		t.Errorf("state = %s, want committed", got.State)
	}
	if got.ID != 2 {
		t.Errorf("id = %d, want 2", got.ID)
	}
	if got.TempID != "" {
		t.Error("temp ID must not survive the commit")
	}
}

func TestList_PerformFailureKeepsEntryForRetry(t *testing.T) {
	l := newTestList(0)

	attempts := 0
	write := func(context.Context) (row, error) {
		attempts++
		if attempts == 1 {
			return row{}, errors.New("network down")
		}
		return row{ID: 9, Text: "hello"}, nil
	}

	tempID, err := l.Perform(context.Background(), row{Text: "hello"}, write)
	if err == nil {
		t.Fatal("expected first write to fail")
	}

	entries := l.Snapshot()
	if len(entries) != 1 || entries[0].State != StateFailed {
		t.Fatalf("entries = %+v, want one failed entry", entries)
	}

	if err := l.Retry(context.Background(), tempID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	entries = l.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("len = %d after retry, want 1 (retry must not duplicate)", len(entries))
	}
	if entries[0].State != StateCommitted || entries[0].ID != 9 {
		t.Errorf("entry = %+v, want committed id 9", entries[0])
	}
}

func TestList_RetryOfCommittedEntryIsNoop(t *testing.T) {
	l := newTestList(0)

	tempID, err := l.Perform(context.Background(), row{Text: "x"}, func(context.Context) (row, error) {
		return row{ID: 1, Text: "x"}, nil
	})
	if err != nil {
		t.Fatalf("perform: %v", err)
	}

	if err := l.Retry(context.Background(), tempID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := l.Len(); got != 1 {
		t.Errorf("len = %d, want 1", got)
	}
}

// The feed can deliver the committed row before the write call returns. The
// settling entry must then be dropped instead of producing a duplicate.
func TestList_FeedRaceDeduplicates(t *testing.T) {
	l := newTestList(0)

	_, err := l.Perform(context.Background(), row{Text: "dup"}, func(context.Context) (row, error) {
		l.Ingest(row{ID: 5, Text: "dup"})
		return row{ID: 5, Text: "dup"}, nil
	})
	if err != nil {
		t.Fatalf("perform: %v", err)
	}

	entries := l.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1 (feed row and write result are the same row)", len(entries))
	}
	if entries[0].ID != 5 || entries[0].State != StateCommitted {
		t.Errorf("entry = %+v, want committed id 5", entries[0])
	}
}

func TestList_IngestDeduplicatesByID(t *testing.T) {
	l := newTestList(0)

	if !l.Ingest(row{ID: 1}) {
		t.Error("first ingest should report true")
	}
	if l.Ingest(row{ID: 1}) {
		t.Error("second ingest of the same ID should report false")
	}
	if got := l.Len(); got != 1 {
		t.Errorf("len = %d, want 1", got)
	}
}

func TestList_Remove(t *testing.T) {
	l := newTestList(0)
	l.Seed([]row{{ID: 1}, {ID: 2}, {ID: 3}})

	l.Remove(2)
	l.Remove(99) // absent IDs are a no-op

	entries := l.Snapshot()
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].ID != 1 || entries[1].ID != 3 {
		t.Errorf("remaining = %d,%d, want 1,3", entries[0].ID, entries[1].ID)
	}
}

func TestList_LimitDropsOldest(t *testing.T) {
	l := newTestList(3)
	l.Seed([]row{{ID: 1}, {ID: 2}, {ID: 3}})

	l.Ingest(row{ID: 4})

	entries := l.Snapshot()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].ID != 2 || entries[2].ID != 4 {
		t.Errorf("window = %d..%d, want 2..4", entries[0].ID, entries[2].ID)
	}
}
