// Package cancellation provides the cross-goroutine cancellation handle used
// by every network operation of the pipeline, and the timer that turns a
// missing response into a cancellation.
package cancellation

import (
	"context"
	"sync"
)

// State is the lifecycle state of a Context.
type State int

const (
	// StateActive means no cancellation was requested.
	StateActive State = iota
	// StateCancelRequested means Cancel was called while no canceller was
	// registered. The next registration fires immediately.
	StateCancelRequested
	// StateCancelled means a registered canceller has been invoked.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCancelRequested:
		return "cancel_requested"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// slot holds one registered canceller. Its identity is what Release compares.
type slot struct {
	fn func()
}

// Context lets one goroutine abort an operation owned by another. It holds at
// most one canceller, the one of the operation currently in flight. A Context
// belongs to exactly one logical call and must not be reused.
type Context struct {
	mu      sync.Mutex
	state   State
	current *slot
	parent  context.Context
}

// New returns an active Context with a background parent.
func New() *Context {
	return &Context{parent: context.Background()}
}

// FromContext returns a Context that is cancelled when ctx is done. ctx also
// becomes the parent used for request-scoped values such as the logger.
// The returned stop func detaches the two; call it when the operation ends.
// A ctx that is already done yields a Context that is already cancelled.
func FromContext(ctx context.Context) (*Context, func() bool) {
	c := &Context{parent: ctx}
	if ctx.Err() != nil {
		c.state = StateCancelRequested
		return c, func() bool { return false }
	}
	stop := context.AfterFunc(ctx, c.Cancel)
	return c, stop
}

// Parent returns the Go context the Context was created from.
func (c *Context) Parent() context.Context {
	return c.parent
}

// State returns the current state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsCancelled reports whether cancellation was requested.
func (c *Context) IsCancelled() bool {
	return c.State() != StateActive
}

// Cancel requests cancellation. It is idempotent and safe from any goroutine;
// only the first call has an effect. The registered canceller, if any, runs on
// the calling goroutine after the lock is released.
func (c *Context) Cancel() {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	s := c.current
	c.current = nil
	if s == nil {
		c.state = StateCancelRequested
		c.mu.Unlock()
		return
	}
	c.state = StateCancelled
	c.mu.Unlock()
	s.fn()
}

// Registration is the handle of a registered canceller.
type Registration struct {
	c *Context
	s *slot
}

// Release removes the canceller if it is still the registered one. After
// Release returns, a later Cancel can no longer reach it.
func (r Registration) Release() {
	if r.c == nil {
		return
	}
	r.c.mu.Lock()
	if r.c.current == r.s {
		r.c.current = nil
	}
	r.c.mu.Unlock()
}

// RegisterCanceller installs fn as the canceller of the operation in flight,
// replacing any previous one. If cancellation was already requested, fn is
// invoked before returning and false is returned.
func (c *Context) RegisterCanceller(fn func()) (Registration, bool) {
	c.mu.Lock()
	if c.state != StateActive {
		fire := c.state == StateCancelRequested
		c.state = StateCancelled
		c.mu.Unlock()
		if fire {
			fn()
		}
		return Registration{}, false
	}
	s := &slot{fn: fn}
	c.current = s
	c.mu.Unlock()
	return Registration{c: c, s: s}, true
}

// ExecuteOrCancelled runs execute unless cancellation was already requested,
// in which case onCancelled runs instead and false is returned. The canceller
// returned by execute is registered before the lock is released, so a Cancel
// racing with execute always sees it. A nil canceller registers nothing.
func (c *Context) ExecuteOrCancelled(execute func() func(), onCancelled func()) (Registration, bool) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		if onCancelled != nil {
			onCancelled()
		}
		return Registration{}, false
	}
	fn := execute()
	if fn == nil {
		c.mu.Unlock()
		return Registration{}, true
	}
	s := &slot{fn: fn}
	c.current = s
	c.mu.Unlock()
	return Registration{c: c, s: s}, true
}
