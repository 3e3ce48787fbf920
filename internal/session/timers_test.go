package session

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestTimers(t *testing.T) {
	t.Run("arm and cancel track the pending slot", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		timers := NewTimers(clock)

		timers.Arm("a", TimerReminder, time.Minute, func() {})
		assert.True(t, timers.Pending("a", TimerReminder))
		assert.False(t, timers.Pending("a", TimerTimeout))

		timers.Cancel("a", TimerReminder)
		assert.False(t, timers.Pending("a", TimerReminder))
	})

	t.Run("firing clears the slot and runs the callback", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		timers := NewTimers(clock)

		fired := make(chan struct{})
		timers.Arm("a", TimerDebounce, time.Second, func() { close(fired) })

		clock.Advance(time.Second)

		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("timer did not fire")
		}
		assert.Eventually(t, func() bool {
			return !timers.Pending("a", TimerDebounce)
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("re-arming replaces the previous timer", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		timers := NewTimers(clock)

		first := make(chan struct{}, 1)
		second := make(chan struct{}, 1)
		timers.Arm("a", TimerReminder, time.Second, func() { first <- struct{}{} })
		timers.Arm("a", TimerReminder, 2*time.Second, func() { second <- struct{}{} })

		clock.Advance(time.Second)
		select {
		case <-first:
			t.Fatal("replaced timer fired")
		case <-time.After(50 * time.Millisecond):
		}

		clock.Advance(time.Second)
		select {
		case <-second:
		case <-time.After(time.Second):
			t.Fatal("replacement timer did not fire")
		}
	})

	t.Run("stale fire does not clear a replacement slot", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		timers := NewTimers(clock)

		timers.Arm("a", TimerReminder, time.Second, func() {})
		timers.Arm("a", TimerReminder, time.Minute, func() {})

		// A fire from the replaced timer carries the old generation and
		// must leave the replacement's slot in place.
		timers.clear("a", TimerReminder, 1)
		assert.True(t, timers.Pending("a", TimerReminder))

		timers.clear("a", TimerReminder, 2)
		assert.False(t, timers.Pending("a", TimerReminder))
	})

	t.Run("cancel all drops every slot for the identity", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		timers := NewTimers(clock)

		timers.Arm("a", TimerReminder, time.Minute, func() {})
		timers.Arm("a", TimerTimeout, time.Minute, func() {})
		timers.Arm("b", TimerReminder, time.Minute, func() {})

		timers.CancelAll("a")

		assert.False(t, timers.Pending("a", TimerReminder))
		assert.False(t, timers.Pending("a", TimerTimeout))
		assert.True(t, timers.Pending("b", TimerReminder))
	})
}
