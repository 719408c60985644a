package cancellation

import (
	"sync/atomic"
	"time"
)

// TimeoutGuard runs onTimeout once if it is not stopped within the configured
// duration. Fired tells the caller which trigger ended the operation.
type TimeoutGuard struct {
	timer *time.Timer
	fired atomic.Bool
}

// StartTimeoutGuard arms a guard. A non-positive d never fires.
func StartTimeoutGuard(d time.Duration, onTimeout func()) *TimeoutGuard {
	g := &TimeoutGuard{}
	if d <= 0 {
		return g
	}
	g.timer = time.AfterFunc(d, func() {
		g.fired.Store(true)
		onTimeout()
	})
	return g
}

// Stop disarms the guard. It reports whether the timer was stopped before firing.
func (g *TimeoutGuard) Stop() bool {
	if g.timer == nil {
		return true
	}
	return g.timer.Stop()
}

// Fired reports whether the timer elapsed.
func (g *TimeoutGuard) Fired() bool {
	return g.fired.Load()
}
