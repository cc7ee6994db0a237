package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestTopic(t *testing.T) {
	if got := Topic(TopicNotifications, 42); got != "notifications:42" {
		t.Errorf("Topic = %q, want %q", got, "notifications:42")
	}
	// Subject 0 is the shared global chat room.
	if got := Topic(TopicMessages, 0); got != "messages:0" {
		t.Errorf("Topic = %q, want %q", got, "messages:0")
	}
}

func TestRelay_LocalDispatch(t *testing.T) {
	r := New(nil)

	var got []Payload
	cancel := r.Subscribe(Topic(TopicNotifications, 1), func(p Payload) {
		got = append(got, p)
	})
	defer cancel()

	// Local delivery is synchronous, no waiting needed.
	r.Publish(Topic(TopicNotifications, 1), 1)

	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(got))
	}
	if got[0].SubjectID != 1 {
		t.Errorf("subject = %d, want 1", got[0].SubjectID)
	}
	if got[0].Ts == 0 {
		t.Error("expected a publish timestamp")
	}
}

func TestRelay_TopicsAreIsolated(t *testing.T) {
	r := New(nil)

	var calls int
	cancel := r.Subscribe(Topic(TopicNotifications, 1), func(Payload) { calls++ })
	defer cancel()

	r.Publish(Topic(TopicNotifications, 2), 2)
	r.Publish(Topic(TopicMessages, 1), 1)

	if calls != 0 {
		t.Errorf("calls = %d, want 0 (other subjects and kinds must not leak)", calls)
	}
}

func TestRelay_CancelStopsDelivery(t *testing.T) {
	r := New(nil)

	var calls int
	cancel := r.Subscribe(Topic(TopicMessages, 7), func(Payload) { calls++ })

	r.Publish(Topic(TopicMessages, 7), 7)
	cancel()
	r.Publish(Topic(TopicMessages, 7), 7)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// brokenTransport always fails to send. Publish must still deliver locally
// and never surface the error.
type brokenTransport struct {
	mu    sync.Mutex
	sends int
}

func (bt *brokenTransport) Send(context.Context, string, Payload) error {
	bt.mu.Lock()
	bt.sends++
	bt.mu.Unlock()
	return errors.New("transport down")
}

func (bt *brokenTransport) Listen(ctx context.Context, _ string, _ func(Payload)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (bt *brokenTransport) sendCount() int {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return bt.sends
}

func TestRelay_PublishNeverFails(t *testing.T) {
	bt := &brokenTransport{}
	r := New(bt)

	var calls int
	cancel := r.Subscribe(Topic(TopicNotifications, 5), func(Payload) { calls++ })
	defer cancel()

	r.Publish(Topic(TopicNotifications, 5), 5)

	if calls != 1 {
		t.Fatalf("local calls = %d, want 1 (transport failure must not block local dispatch)", calls)
	}

	deadline := time.Now().Add(2 * time.Second)
	for bt.sendCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("transport send was never attempted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// recordingTransport hands received payloads straight back to the listener,
// simulating a broadcast arriving from another process.
type recordingTransport struct {
	mu        sync.Mutex
	listeners map[string]func(Payload)
	listening chan string
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		listeners: make(map[string]func(Payload)),
		listening: make(chan string, 8),
	}
}

func (rt *recordingTransport) Send(context.Context, string, Payload) error { return nil }

func (rt *recordingTransport) Listen(ctx context.Context, topic string, fn func(Payload)) error {
	rt.mu.Lock()
	rt.listeners[topic] = fn
	rt.mu.Unlock()
	rt.listening <- topic
	<-ctx.Done()
	return ctx.Err()
}

func (rt *recordingTransport) deliver(topic string, p Payload) {
	rt.mu.Lock()
	fn := rt.listeners[topic]
	rt.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

func TestRelay_RemoteDeliveryReachesLocalSubscribers(t *testing.T) {
	rt := newRecordingTransport()
	r := New(rt)

	got := make(chan Payload, 1)
	cancel := r.Subscribe(Topic(TopicMessages, 3), func(p Payload) { got <- p })
	defer cancel()

	// Wait for the transport listener the first subscriber starts.
	select {
	case <-rt.listening:
	case <-time.After(2 * time.Second):
		t.Fatal("transport listener never started")
	}

	rt.deliver(Topic(TopicMessages, 3), Payload{SubjectID: 3, Ts: 1})

	select {
	case p := <-got:
		if p.SubjectID != 3 {
			t.Errorf("subject = %d, want 3", p.SubjectID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("remote payload never reached the local subscriber")
	}
}
