package scheduling

import (
	"sync"
	"time"
)

// ManualClock is a Clock that only advances when told to.
type ManualClock struct {
	now time.Time
	m   sync.Mutex
}

// NewManualClock creates a ManualClock starting at the given time.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.m.Lock()
	defer c.m.Unlock()
	return c.now
}

// Advance moves the clock forward by the given duration.
func (c *ManualClock) Advance(d time.Duration) {
	c.m.Lock()
	defer c.m.Unlock()
	c.now = c.now.Add(d)
}

// ManualTimer is a Timer that never fires on its own. Use Fire in order to run
// the pending callback.
type ManualTimer struct {
	fn       func()
	duration time.Duration
	armCount int
	m        sync.Mutex
}

// NewManualTimer creates a new ManualTimer with nothing armed.
func NewManualTimer() *ManualTimer {
	return &ManualTimer{}
}

// Arm remembers the callback and duration, replacing any pending callback.
func (t *ManualTimer) Arm(d time.Duration, fn func()) {
	t.m.Lock()
	defer t.m.Unlock()
	t.fn = fn
	t.duration = d
	t.armCount++
}

// Cancel forgets the pending callback.
func (t *ManualTimer) Cancel() {
	t.m.Lock()
	defer t.m.Unlock()
	t.fn = nil
	t.duration = 0
}

// Pending returns whether a callback is armed.
func (t *ManualTimer) Pending() bool {
	t.m.Lock()
	defer t.m.Unlock()
	return t.fn != nil
}

// Duration returns the duration the pending callback was armed with. If nothing
// is armed, 0 is returned.
func (t *ManualTimer) Duration() time.Duration {
	t.m.Lock()
	defer t.m.Unlock()
	return t.duration
}

// ArmCount returns how often Arm was called.
func (t *ManualTimer) ArmCount() int {
	t.m.Lock()
	defer t.m.Unlock()
	return t.armCount
}

// Fire runs the pending callback in the calling goroutine and disarms the
// timer. It returns false if nothing was armed.
func (t *ManualTimer) Fire() bool {
	t.m.Lock()
	fn := t.fn
	t.fn = nil
	t.duration = 0
	t.m.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Stale returns the pending callback without disarming the timer. Together
// with a later Arm or Cancel, this allows simulating a callback that fired
// right before it was replaced.
func (t *ManualTimer) Stale() func() {
	t.m.Lock()
	defer t.m.Unlock()
	return t.fn
}
