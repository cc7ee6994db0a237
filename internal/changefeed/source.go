package changefeed

import (
	"context"
	"log"
	"sync"
)

// Publisher is the write side of the feed. Repositories publish an event for
// every committed row mutation.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Source is the read side of the feed. Subscribe returns a channel of raw
// (unfiltered) events for one table plus a cancel function releasing it.
type Source interface {
	Subscribe(table string) (<-chan Event, func())
}

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind starts losing events; the initial bulk load and the
// relay re-fetch path cover the loss.
const subscriberBuffer = 64

// Bus is an in-process feed carrying events between goroutines of the same
// process. It implements both Publisher and Source and is the delivery path
// used in tests.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan Event // table -> subscriber id -> channel
}

// NewBus creates an empty in-process feed.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]chan Event)}
}

// Publish delivers the event to every current subscriber of its table.
// Slow subscribers are skipped rather than blocked on.
func (b *Bus) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs[ev.Table] {
		select {
		case ch <- ev:
		default:
			log.Printf("[ChangeFeed] drop: table=%s kind=%s sub=%d (subscriber behind)", ev.Table, ev.Kind, id)
		}
	}
	return nil
}

// Subscribe registers a new subscriber for one table.
func (b *Bus) Subscribe(table string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++

	ch := make(chan Event, subscriberBuffer)
	if b.subs[table] == nil {
		b.subs[table] = make(map[int]chan Event)
	}
	b.subs[table][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[table][id]; ok {
			delete(b.subs[table], id)
			close(sub)
		}
	}
	return ch, cancel
}
