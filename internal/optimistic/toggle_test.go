package optimistic

import (
	"errors"
	"testing"
)

func TestToggleGuard_RejectsConcurrentToggle(t *testing.T) {
	g := NewToggleGuard()

	var inner error
	err := g.Do(1, func() error {
		// A second toggle while the first is in flight is rejected, not queued.
		inner = g.Do(1, func() error { return nil })
		return nil
	})
	if err != nil {
		t.Fatalf("outer toggle: %v", err)
	}
	if !errors.Is(inner, ErrToggleInFlight) {
		t.Errorf("inner err = %v, want ErrToggleInFlight", inner)
	}
}

func TestToggleGuard_TargetsAreIndependent(t *testing.T) {
	g := NewToggleGuard()

	err := g.Do(1, func() error {
		return g.Do(2, func() error { return nil })
	})
	if err != nil {
		t.Errorf("toggles on different targets should not block each other: %v", err)
	}
}

func TestToggleGuard_ReleasedAfterCompletion(t *testing.T) {
	g := NewToggleGuard()

	if err := g.Do(1, func() error { return errors.New("write failed") }); err == nil {
		t.Fatal("expected the toggle's own error back")
	}
	// The slot frees up even when the toggle failed.
	if err := g.Do(1, func() error { return nil }); err != nil {
		t.Errorf("second toggle after release: %v", err)
	}
}
