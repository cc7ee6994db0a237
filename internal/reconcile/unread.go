package reconcile

import "sync"

// UnreadSet tracks the IDs of unread items for one viewer. Mark-as-read is a
// full removal, not a decrement placeholder: the item disappears from the
// unread view the instant the write commits locally, independent of feed
// confirmation.
type UnreadSet struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewUnreadSet creates an empty set.
func NewUnreadSet() *UnreadSet {
	return &UnreadSet{ids: make(map[int64]struct{})}
}

// Seed replaces the set with IDs from a bulk load.
func (s *UnreadSet) Seed(ids []int64) {
	next := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	s.mu.Lock()
	s.ids = next
	s.mu.Unlock()
}

// Add records a newly arrived unread item.
func (s *UnreadSet) Add(id int64) {
	s.mu.Lock()
	s.ids[id] = struct{}{}
	s.mu.Unlock()
}

// MarkRead removes the item. Removing an absent item is a no-op, which makes
// the local commit, the relay re-fetch and the feed confirmation idempotent
// against each other.
func (s *UnreadSet) MarkRead(id int64) {
	s.mu.Lock()
	delete(s.ids, id)
	s.mu.Unlock()
}

// Contains reports whether the item is unread.
func (s *UnreadSet) Contains(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Count returns the unread count.
func (s *UnreadSet) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
