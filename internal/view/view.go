// Package view holds the per-page live sessions: each session seeds its state
// with a bulk load, keeps it fresh from change-feed subscriptions and relay
// wakes, and detaches everything on Close. Load failures degrade to an empty
// session with the error recorded, never to a crash.
package view

import (
	"sync"

	"shotzi/internal/changefeed"
	"shotzi/internal/relay"
	"shotzi/internal/repository"
	"shotzi/internal/service"
)

// Default bulk-load size for feed-style views.
const defaultLoadLimit = 100

// Deps bundles everything sessions read from and write through.
type Deps struct {
	Users         repository.UserRepository
	Posts         repository.PostRepository
	Comments      repository.CommentRepository
	Follows       repository.FollowRepository
	Notifications repository.NotificationRepository
	Messages      repository.MessageRepository
	Pending       repository.PendingPostRepository

	Social     *service.SocialService
	Messaging  *service.MessagingService
	Moderation *service.ModerationService

	Feed  *changefeed.Manager
	Relay *relay.Relay
}

// session is the embedded lifecycle core shared by every view session. It
// tracks open subscriptions and relay listeners so Close can detach them all,
// and a closed flag so late async results are dropped instead of applied.
type session struct {
	mu      sync.Mutex
	closed  bool
	handles []*changefeed.Handle
	cancels []func()
	err     error
}

// track registers a feed handle for teardown on Close.
func (s *session) track(h *changefeed.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		h.Close()
		return
	}
	s.handles = append(s.handles, h)
}

// trackCancel registers a relay unsubscribe for teardown on Close.
func (s *session) trackCancel(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		fn()
		return
	}
	s.cancels = append(s.cancels, fn)
}

// Close synchronously detaches every subscription and listener. After Close
// returns, no callback will mutate the session again; closing twice is a
// no-op.
func (s *session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	handles := s.handles
	cancels := s.cancels
	s.handles = nil
	s.cancels = nil
	s.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
	for _, fn := range cancels {
		fn()
	}
}

// active reports whether the session is still open. Event callbacks check it
// before applying late results.
func (s *session) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// fail records a load error. The session stays usable with empty state.
func (s *session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the first load error, or nil.
func (s *session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
