package reconcile

import "testing"

func TestCounters_ReplaceClampsNegative(t *testing.T) {
	c := NewCounters()

	c.Replace(1, 5)
	c.Replace(2, -3)

	if got := c.Get(1); got != 5 {
		t.Errorf("Get(1) = %d, want 5", got)
	}
	if got := c.Get(2); got != 0 {
		t.Errorf("Get(2) = %d, want 0 (negative recompute clamps)", got)
	}
}

func TestCounters_PatchFloorsAtZero(t *testing.T) {
	c := NewCounters()
	c.Replace(1, 1)

	if got := c.Patch(1, -1); got != 0 {
		t.Errorf("Patch = %d, want 0", got)
	}
	// A stray extra decrement (duplicate delete event) must not go negative.
	if got := c.Patch(1, -1); got != 0 {
		t.Errorf("Patch = %d, want 0", got)
	}
	if got := c.Patch(1, 2); got != 2 {
		t.Errorf("Patch = %d, want 2", got)
	}
}

func TestCounters_GetAbsentIsZero(t *testing.T) {
	c := NewCounters()
	if got := c.Get(99); got != 0 {
		t.Errorf("Get = %d, want 0", got)
	}
}

func TestCounters_ReplaceAll(t *testing.T) {
	c := NewCounters()
	c.Replace(1, 10)

	c.ReplaceAll(map[int64]int{2: 3, 3: -1})

	if got := c.Get(1); got != 0 {
		t.Errorf("Get(1) = %d, want 0 (bulk load replaces wholesale)", got)
	}
	if got := c.Get(2); got != 3 {
		t.Errorf("Get(2) = %d, want 3", got)
	}
	if got := c.Get(3); got != 0 {
		t.Errorf("Get(3) = %d, want 0", got)
	}
}

func TestCounters_Snapshot(t *testing.T) {
	c := NewCounters()
	c.Replace(1, 2)

	snap := c.Snapshot()
	snap[1] = 99

	if got := c.Get(1); got != 2 {
		t.Errorf("Get = %d, want 2 (snapshot must be a copy)", got)
	}
}
