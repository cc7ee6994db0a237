// Package relay is the cross-tab broadcast channel: a best-effort signal that
// something changed for a subject, used to trigger re-fetches ahead of (or in
// place of) change-feed delivery. Loss of a broadcast degrades freshness, not
// correctness, so publishing never fails.
package relay

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"
)

// Payload is the broadcast shape. SubjectID identifies who the signal is
// about; Ts lets consumers discard stale replays if they care to.
type Payload struct {
	SubjectID int64 `json:"subject_id"`
	Ts        int64 `json:"ts"` // Epoch milliseconds
}

// Topic builds a subject-scoped topic key, e.g. Topic("notifications", 42).
// Filtering is pushed into the key so subscribers only hear about their
// subject instead of filtering inside every callback.
func Topic(kind string, subjectID int64) string {
	return kind + ":" + strconv.FormatInt(subjectID, 10)
}

// Well-known topic kinds.
const (
	TopicNotifications = "notifications"
	TopicMessages      = "messages"
)

// Transport carries payloads to other processes ("other tabs"). Implementations
// are best effort; errors are logged and swallowed by the relay.
type Transport interface {
	// Send publishes the payload for a topic to remote listeners.
	Send(ctx context.Context, topic string, p Payload) error
	// Listen delivers remotely published payloads to fn until ctx ends.
	Listen(ctx context.Context, topic string, fn func(Payload)) error
}

// Relay fans payloads out to same-process subscribers immediately and to the
// transport (when configured) asynchronously.
type Relay struct {
	transport Transport

	mu      sync.Mutex
	next    int
	subs    map[string]map[int]func(Payload)
	cancels map[string]context.CancelFunc // one transport listener per topic
}

// New creates a relay. transport may be nil for a purely local relay (tests).
func New(transport Transport) *Relay {
	return &Relay{
		transport: transport,
		subs:      make(map[string]map[int]func(Payload)),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Publish delivers the payload to local subscribers on the calling goroutine,
// then hands it to the transport. It never fails: a transport error is logged
// and dropped because the change feed and the next manual refresh are the
// fallback paths.
func (r *Relay) Publish(topic string, subjectID int64) {
	p := Payload{SubjectID: subjectID, Ts: time.Now().UnixMilli()}

	r.mu.Lock()
	fns := make([]func(Payload), 0, len(r.subs[topic]))
	for _, fn := range r.subs[topic] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}

	if r.transport == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.transport.Send(ctx, topic, p); err != nil {
			log.Printf("[Relay] Send dropped: topic=%s err=%v", topic, err)
		}
	}()
}

// Subscribe registers fn for a topic and returns a cancel function removing
// it. The first subscriber of a topic starts the transport listener for it;
// the last one leaving stops it.
func (r *Relay) Subscribe(topic string, fn func(Payload)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.next
	r.next++

	if r.subs[topic] == nil {
		r.subs[topic] = make(map[int]func(Payload))
	}
	r.subs[topic][id] = fn

	if r.transport != nil && r.cancels[topic] == nil {
		ctx, cancel := context.WithCancel(context.Background())
		r.cancels[topic] = cancel
		go r.listen(ctx, topic)
	}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs[topic], id)
		if len(r.subs[topic]) == 0 {
			delete(r.subs, topic)
			if cancel, ok := r.cancels[topic]; ok {
				cancel()
				delete(r.cancels, topic)
			}
		}
	}
}

// listen forwards transport deliveries for one topic to local subscribers.
func (r *Relay) listen(ctx context.Context, topic string) {
	err := r.transport.Listen(ctx, topic, func(p Payload) {
		r.mu.Lock()
		fns := make([]func(Payload), 0, len(r.subs[topic]))
		for _, fn := range r.subs[topic] {
			fns = append(fns, fn)
		}
		r.mu.Unlock()

		for _, fn := range fns {
			fn(p)
		}
	})
	if err != nil && ctx.Err() == nil {
		log.Printf("[Relay] Listen stopped: topic=%s err=%v", topic, err)
	}
}
