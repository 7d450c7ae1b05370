package clock

import (
	"testing"
	"time"
)

func TestFake_AdvanceRunsDueTimers(t *testing.T) {
	c := NewFake()
	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })

	c.Advance(999 * time.Millisecond)
	if len(fired) != 0 {
		t.Fatalf("expected nothing to fire, got %v", fired)
	}

	c.Advance(time.Second + time.Millisecond)
	if len(fired) != 2 || fired[0] != "a" || fired[1] != "b" {
		t.Errorf("expected [a b], got %v", fired)
	}
	if c.Pending() != 1 {
		t.Errorf("expected 1 pending timer, got %d", c.Pending())
	}
}

func TestFake_SameDeadlineFiresInScheduleOrder(t *testing.T) {
	c := NewFake()
	var fired []int
	for i := range 3 {
		c.AfterFunc(time.Second, func() { fired = append(fired, i) })
	}
	c.Advance(time.Second)
	if len(fired) != 3 || fired[0] != 0 || fired[1] != 1 || fired[2] != 2 {
		t.Errorf("expected [0 1 2], got %v", fired)
	}
}

func TestFake_Stop(t *testing.T) {
	c := NewFake()
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })

	if !tm.Stop() {
		t.Error("expected Stop to report an active timer")
	}
	if tm.Stop() {
		t.Error("expected second Stop to report false")
	}
	c.Advance(2 * time.Second)
	if fired {
		t.Error("expected stopped timer not to fire")
	}
}

func TestFake_CallbackSchedulesWithinWindow(t *testing.T) {
	c := NewFake()
	var fired []string
	c.AfterFunc(time.Second, func() {
		fired = append(fired, "first")
		c.AfterFunc(time.Second, func() { fired = append(fired, "second") })
	})
	c.Advance(2 * time.Second)
	if len(fired) != 2 {
		t.Errorf("expected both callbacks, got %v", fired)
	}
}

func TestFake_NowAdvances(t *testing.T) {
	c := NewFake()
	start := c.Now()
	c.Advance(1500 * time.Millisecond)
	if got := c.Now().Sub(start); got != 1500*time.Millisecond {
		t.Errorf("expected 1.5s elapsed, got %v", got)
	}
}

func TestReal_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real().AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected real timer to fire")
	}
}
