package sched

import "testing"

func TestScheduleFiresAfterExactDelay(t *testing.T) {
	c := NewClock()
	var fired uint64

	c.Schedule(3, func() { fired = c.Now() })

	for i := 0; i < 2; i++ {
		c.Tick()
		if fired != 0 {
			t.Fatalf("fired too early, at cycle %d", c.Now())
		}
	}
	c.Tick()
	if fired != c.Now() {
		t.Fatalf("expected the callback to observe cycle %d, got %d", c.Now(), fired)
	}
}

func TestZeroDelayFiresOnNextTick(t *testing.T) {
	c := NewClock()
	fired := false
	c.Schedule(0, func() { fired = true })

	if fired {
		t.Fatalf("a zero-delay callback must not fire synchronously inside Schedule")
	}
	c.Tick()
	if !fired {
		t.Fatalf("expected the zero-delay callback to fire on the following Tick")
	}
}

func TestSameCycleCallbacksFireInPushOrder(t *testing.T) {
	c := NewClock()
	var order []int
	c.Schedule(1, func() { order = append(order, 1) })
	c.Schedule(1, func() { order = append(order, 2) })

	c.Tick()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected FIFO order [1 2], got %v", order)
	}
}

func TestPendingTracksOutstandingCallbacks(t *testing.T) {
	c := NewClock()
	c.Schedule(5, func() {})
	if c.Pending() != 1 {
		t.Fatalf("expected 1 pending callback, got %d", c.Pending())
	}
	for i := 0; i < 5; i++ {
		c.Tick()
	}
	if c.Pending() != 0 {
		t.Fatalf("expected 0 pending callbacks after the delay elapsed, got %d", c.Pending())
	}
}
