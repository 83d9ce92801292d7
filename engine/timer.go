package engine

import (
	"sync"
	"time"
)

// RoundTimer is the single countdown for the current round. Every Arm and
// Cancel bumps a generation counter, so a callback that was already in flight
// when the timer was cancelled can detect it is stale and do nothing.
type RoundTimer struct {
	mu  sync.Mutex
	t   *time.Timer
	gen uint64
}

// Arm cancels any pending countdown and schedules fire after d. fire receives
// the generation it was armed with.
func (rt *RoundTimer) Arm(d time.Duration, fire func(gen uint64)) uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.stopLocked()
	gen := rt.gen
	rt.t = time.AfterFunc(d, func() { fire(gen) })
	return gen
}

// Cancel stops the countdown and invalidates any callback already running.
func (rt *RoundTimer) Cancel() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.stopLocked()
}

func (rt *RoundTimer) stopLocked() {
	if rt.t != nil {
		rt.t.Stop()
		rt.t = nil
	}
	rt.gen++
}

// Current reports whether gen is still the live generation.
func (rt *RoundTimer) Current(gen uint64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.t != nil && rt.gen == gen
}
