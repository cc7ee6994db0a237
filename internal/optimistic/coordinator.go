// Package optimistic keeps user-initiated writes visible in view state before
// the backend confirms them. Entries carry an explicit state so reconciliation
// against feed-delivered rows is exhaustive instead of relying on marker
// fields bolted onto the row shape.
package optimistic

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// State of a list entry.
type State string

const (
	// StatePending means applied locally, write in flight.
	StatePending State = "pending"
	// StateCommitted means the row is authoritative, confirmed by the backend.
	StateCommitted State = "committed"
	// StateFailed means the write failed; the entry stays in place for retry.
	StateFailed State = "failed"
)

// Entry is one list element. TempID is set while the entry is Pending or
// Failed; ID is the authoritative identifier once Committed. Temporary IDs
// never leave the process: they must not appear in server writes or relay
// broadcasts.
type Entry[T any] struct {
	State  State  `json:"state"`
	TempID string `json:"temp_id,omitempty"`
	ID     int64  `json:"id,omitempty"`
	Row    T      `json:"row"`
}

// WriteFunc performs the remote write and returns the authoritative row.
type WriteFunc[T any] func(ctx context.Context) (T, error)

// List is an ordered collection mixing committed rows with optimistic entries.
// idOf extracts the authoritative identifier from a row; limit caps the list
// length (oldest entries dropped first), 0 means unbounded.
type List[T any] struct {
	idOf  func(T) int64
	limit int

	mu      sync.Mutex
	entries []Entry[T]
	writes  map[string]WriteFunc[T] // retained per temp ID for retry
}

// NewList creates an empty list.
func NewList[T any](idOf func(T) int64, limit int) *List[T] {
	return &List[T]{
		idOf:   idOf,
		limit:  limit,
		writes: make(map[string]WriteFunc[T]),
	}
}

// Perform applies row locally as a Pending entry, runs the remote write, and
// settles the entry: on success it is replaced in place by the authoritative
// row (list position preserved), on failure it is marked Failed and kept for
// retry. The returned temp ID identifies the entry until it commits.
func (l *List[T]) Perform(ctx context.Context, row T, write WriteFunc[T]) (string, error) {
	tempID := uuid.NewString()

	l.mu.Lock()
	l.entries = append(l.entries, Entry[T]{State: StatePending, TempID: tempID, Row: row})
	l.writes[tempID] = write
	l.trimLocked()
	l.mu.Unlock()

	return tempID, l.settle(ctx, tempID, write)
}

// Retry re-attempts the remote write of a Failed entry. Retrying an entry
// that is not Failed (or no longer present) is a no-op; a retry never creates
// a second temporary entry.
func (l *List[T]) Retry(ctx context.Context, tempID string) error {
	l.mu.Lock()
	idx := l.indexOfTempLocked(tempID)
	if idx < 0 || l.entries[idx].State != StateFailed {
		l.mu.Unlock()
		return nil
	}
	write := l.writes[tempID]
	l.entries[idx].State = StatePending
	l.mu.Unlock()

	return l.settle(ctx, tempID, write)
}

// settle runs the write and reconciles the temp entry with the result.
func (l *List[T]) settle(ctx context.Context, tempID string, write WriteFunc[T]) error {
	committed, err := write(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexOfTempLocked(tempID)
	if idx < 0 {
		// Entry was dropped (trimmed or removed) while in flight.
		delete(l.writes, tempID)
		return err
	}

	if err != nil {
		l.entries[idx].State = StateFailed
		return fmt.Errorf("optimistic write: %w", err)
	}

	realID := l.idOf(committed)
	if l.containsIDLocked(realID) {
		// The change feed delivered the same row while the write was in
		// flight; drop the temporary entry instead of duplicating.
		l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
	} else {
		l.entries[idx] = Entry[T]{State: StateCommitted, ID: realID, Row: committed}
	}
	delete(l.writes, tempID)
	return nil
}

// Ingest appends a feed-delivered authoritative row, deduplicated by ID.
// Returns false when an entry with the same ID already exists.
func (l *List[T]) Ingest(row T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.idOf(row)
	if l.containsIDLocked(id) {
		return false
	}
	l.entries = append(l.entries, Entry[T]{State: StateCommitted, ID: id, Row: row})
	l.trimLocked()
	return true
}

// Seed replaces the list contents with committed rows from a bulk load.
func (l *List[T]) Seed(rows []T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = l.entries[:0]
	for _, row := range rows {
		l.entries = append(l.entries, Entry[T]{State: StateCommitted, ID: l.idOf(row), Row: row})
	}
	l.trimLocked()
}

// Remove deletes the committed entry with the given authoritative ID.
func (l *List[T]) Remove(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.State != StatePending && e.State != StateFailed && e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// Snapshot returns a copy of the entries in list order.
func (l *List[T]) Snapshot() []Entry[T] {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry[T], len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the current entry count.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *List[T]) indexOfTempLocked(tempID string) int {
	for i, e := range l.entries {
		if e.TempID == tempID && e.State != StateCommitted {
			return i
		}
	}
	return -1
}

func (l *List[T]) containsIDLocked(id int64) bool {
	for _, e := range l.entries {
		if e.State == StateCommitted && e.ID == id {
			return true
		}
	}
	return false
}

// trimLocked drops oldest entries beyond the cap.
func (l *List[T]) trimLocked() {
	if l.limit <= 0 || len(l.entries) <= l.limit {
		return
	}
	drop := len(l.entries) - l.limit
	for _, e := range l.entries[:drop] {
		if e.TempID != "" {
			delete(l.writes, e.TempID)
		}
	}
	l.entries = append(l.entries[:0], l.entries[drop:]...)
}
