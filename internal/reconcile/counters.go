// Package reconcile derives aggregate counts and flags from a changing set of
// underlying rows. Two update paths must converge to the same state: a full
// recompute that replaces an entry wholesale, and an incremental patch driven
// by a single change-feed event. Patches are only safe for strictly additive
// or subtractive single-cause streams (a follow edge insert or delete);
// wherever multiple independent causes can touch the same counter (likes
// arriving from the feed while the viewer's own optimistic like is pending)
// callers must recompute instead, or double-counting follows.
package reconcile

import "sync"

// Counters maps an entity ID to a derived count. Counts never go negative.
type Counters struct {
	mu     sync.Mutex
	counts map[int64]int
}

// NewCounters creates an empty counter map.
func NewCounters() *Counters {
	return &Counters{counts: make(map[int64]int)}
}

// Replace is the full-recompute path: the entry is overwritten with a value
// re-queried from the backend. Negative inputs clamp to zero.
func (c *Counters) Replace(id int64, count int) {
	if count < 0 {
		count = 0
	}
	c.mu.Lock()
	c.counts[id] = count
	c.mu.Unlock()
}

// ReplaceAll swaps in a freshly computed map (bulk load path).
func (c *Counters) ReplaceAll(counts map[int64]int) {
	next := make(map[int64]int, len(counts))
	for id, n := range counts {
		if n < 0 {
			n = 0
		}
		next[id] = n
	}
	c.mu.Lock()
	c.counts = next
	c.mu.Unlock()
}

// Patch is the incremental path: adjust the entry by a signed delta derived
// from one change-feed event. The result floors at zero.
func (c *Counters) Patch(id int64, delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.counts[id] + delta
	if n < 0 {
		n = 0
	}
	c.counts[id] = n
	return n
}

// Get returns the count for an entity (zero when absent).
func (c *Counters) Get(id int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[id]
}

// Snapshot copies the current map.
func (c *Counters) Snapshot() map[int64]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[int64]int, len(c.counts))
	for id, n := range c.counts {
		out[id] = n
	}
	return out
}
