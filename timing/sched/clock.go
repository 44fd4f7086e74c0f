// Package sched provides the single injected "now" source and
// future-dated-callback scheduler used by the fetch stage and its
// collaborators (the MMU and the I-cache port). It is a thin adapter over
// Akita's event queue: the fetch stage is cycle-driven, not message-passing,
// so it does not use Akita's Port/Component/Engine machinery, only the
// ordered-by-time event queue primitive.
package sched

import (
	"github.com/sarchlab/akita/v4/sim"
)

// Clock is an injected cycle counter plus a scheduler for callbacks dated
// relative to the current cycle. Nothing under timing/ reads wall-clock
// time; every latency is expressed as a cycle delta scheduled on a Clock.
type Clock struct {
	queue sim.EventQueue
	now   uint64
}

// NewClock creates a Clock starting at cycle 0.
func NewClock() *Clock {
	return &Clock{queue: sim.NewEventQueue()}
}

// Now returns the current cycle.
func (c *Clock) Now() uint64 {
	return c.now
}

// Schedule arranges for fn to run after the given number of cycles have
// elapsed (0 means "at the end of the current cycle's Tick call", used by
// the MMU/cache to model zero-latency responses deterministically rather
// than synchronously mutating state mid-tick).
func (c *Clock) Schedule(afterCycles uint64, fn func()) {
	t := sim.VTimeInSec(c.now + afterCycles)
	evt := &callbackEvent{EventBase: sim.NewEventBase(t, c), fn: fn}
	c.queue.Push(evt)
}

// Handle runs the callback carried by a due event. It satisfies
// sim.Handler so callbackEvent can be pushed through the shared event
// queue machinery.
func (c *Clock) Handle(e sim.Event) error {
	e.(*callbackEvent).fn()
	return nil
}

// Tick advances the clock by one cycle and runs every callback whose time
// has arrived, in time order. Ties are broken in FIFO push order by the
// underlying heap, matching Akita's own same-time event handling.
func (c *Clock) Tick() {
	c.now++
	for c.queue.Len() > 0 && c.queue.Peek().Time() <= sim.VTimeInSec(c.now) {
		evt := c.queue.Pop()
		_ = evt.Handler().Handle(evt)
	}
}

// Pending reports how many callbacks are still waiting to fire. The fetch
// stage's drain detection uses this to confirm no translation-completion
// event is pending before declaring itself drained.
func (c *Clock) Pending() int {
	return c.queue.Len()
}

type callbackEvent struct {
	*sim.EventBase
	fn func()
}
