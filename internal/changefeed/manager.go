package changefeed

import (
	"sync"
)

// KindAll registers a callback for every event kind that has no specific
// callback of its own.
const KindAll Kind = "*"

// Manager opens and closes per-view subscriptions against a Source. A view
// typically holds one handle per table of interest and must close every handle
// when it unmounts or its subject changes; a leaked handle keeps delivering
// into a stale callback closure.
type Manager struct {
	src Source
}

// NewManager creates a subscription manager over the given source.
func NewManager(src Source) *Manager {
	return &Manager{src: src}
}

// Subscribe opens one logical channel for a table, optionally scoped by a
// filter. Callbacks are registered with On; events arriving for kinds with no
// registered callback are silently ignored.
func (m *Manager) Subscribe(table string, filter *Filter) *Handle {
	ch, cancel := m.src.Subscribe(table)

	h := &Handle{
		filter:    filter,
		cancel:    cancel,
		callbacks: make(map[Kind]func(Event)),
	}

	go h.dispatch(ch)
	return h
}

// Handle is one live subscription. On and Close are safe for concurrent use.
type Handle struct {
	filter *Filter
	cancel func()

	mu        sync.Mutex
	closed    bool
	callbacks map[Kind]func(Event)
}

// On registers the callback for one event kind, replacing any previous one.
// It returns the handle so registrations can be chained.
func (h *Handle) On(kind Kind, fn func(Event)) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks[kind] = fn
	return h
}

// Close releases the subscription. After Close returns no callback will be
// invoked again; closing twice is a no-op.
func (h *Handle) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	h.cancel()
}

// dispatch delivers filtered events to callbacks until the source channel
// closes. Exactly one callback runs per event: the kind-specific one when
// registered, otherwise the KindAll one.
func (h *Handle) dispatch(ch <-chan Event) {
	for ev := range ch {
		if !h.filter.Matches(ev) {
			continue
		}

		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return
		}
		fn := h.callbacks[ev.Kind]
		if fn == nil {
			fn = h.callbacks[KindAll]
		}
		if fn != nil {
			fn(ev)
		}
		h.mu.Unlock()
	}
}
