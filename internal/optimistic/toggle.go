package optimistic

import (
	"errors"
	"sync"
)

// ErrToggleInFlight is returned when a toggle is requested for a target that
// already has one in flight.
var ErrToggleInFlight = errors.New("toggle already in flight for target")

// ToggleGuard serializes toggle actions (like/unlike, follow/unfollow) per
// target. A second toggle while the first is pending is rejected, not queued,
// so out-of-order responses cannot invert the end state.
type ToggleGuard struct {
	mu   sync.Mutex
	busy map[int64]bool
}

// NewToggleGuard creates an empty guard.
func NewToggleGuard() *ToggleGuard {
	return &ToggleGuard{busy: make(map[int64]bool)}
}

// Acquire marks the target busy. Returns ErrToggleInFlight when it already is.
func (g *ToggleGuard) Acquire(target int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy[target] {
		return ErrToggleInFlight
	}
	g.busy[target] = true
	return nil
}

// Release clears the busy flag for the target.
func (g *ToggleGuard) Release(target int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, target)
}

// Do runs fn under the target's busy flag, rejecting concurrent toggles.
func (g *ToggleGuard) Do(target int64, fn func() error) error {
	if err := g.Acquire(target); err != nil {
		return err
	}
	defer g.Release(target)
	return fn()
}
