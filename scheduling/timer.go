package scheduling

import (
	"sync"
	"time"
)

// Timer schedules a single one-shot callback. Arming a Timer replaces any
// pending callback.
type Timer interface {
	// Arm schedules fn to be called after d. A previously armed callback is
	// cancelled first. The callback runs in its own goroutine.
	Arm(d time.Duration, fn func())
	// Cancel cancels the pending callback if any.
	Cancel()
}

// runtimeTimer implements Timer using time.AfterFunc.
type runtimeTimer struct {
	// timer is the currently armed time.Timer. It is nil if nothing is armed.
	timer *time.Timer
	// generation is increased with every Arm and Cancel. Callbacks of older
	// generations are dropped, even when time.Timer.Stop was too late.
	generation uint64
	// m locks timer and generation.
	m sync.Mutex
}

// NewTimer creates a Timer that is backed by the runtime timers.
func NewTimer() Timer {
	return &runtimeTimer{}
}

func (t *runtimeTimer) Arm(d time.Duration, fn func()) {
	t.m.Lock()
	defer t.m.Unlock()
	t.stop()
	gen := t.generation
	t.timer = time.AfterFunc(d, func() {
		t.m.Lock()
		current := t.generation == gen
		if current {
			t.timer = nil
		}
		t.m.Unlock()
		if !current {
			return
		}
		fn()
	})
}

func (t *runtimeTimer) Cancel() {
	t.m.Lock()
	defer t.m.Unlock()
	t.stop()
}

// stop stops the current timer and invalidates its callback. The caller must
// hold m.
func (t *runtimeTimer) stop() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.generation++
}
