package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type TimerKind string

const (
	TimerReminder TimerKind = "reminder"
	TimerTimeout  TimerKind = "timeout"
	TimerDebounce TimerKind = "debounce"
)

type timerSlot struct {
	timer clockwork.Timer
	gen   uint64
}

// Timers owns every pending timer handle, keyed by identity and kind. At
// most one timer per kind exists per identity; arming replaces the previous
// one. Fired callbacks must re-fetch the session and verify its state:
// cancellation is cooperative and a stale fire can race the Stop call.
type Timers struct {
	clock clockwork.Clock

	mu      sync.Mutex
	nextGen uint64
	slots   map[string]map[TimerKind]*timerSlot
}

func NewTimers(clock clockwork.Clock) *Timers {
	return &Timers{
		clock: clock,
		slots: map[string]map[TimerKind]*timerSlot{},
	}
}

// Arm schedules fn after d, replacing any pending timer of the same kind.
func (t *Timers) Arm(identity string, kind TimerKind, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kinds, ok := t.slots[identity]
	if !ok {
		kinds = map[TimerKind]*timerSlot{}
		t.slots[identity] = kinds
	}

	if prev, ok := kinds[kind]; ok {
		prev.timer.Stop()
	}

	t.nextGen++
	gen := t.nextGen
	slot := &timerSlot{gen: gen}
	slot.timer = t.clock.AfterFunc(d, func() {
		t.clear(identity, kind, gen)
		fn()
	})
	kinds[kind] = slot
}

// clear drops the slot only when it still belongs to the fired timer: a
// replacement armed between fire and callback execution keeps its entry.
func (t *Timers) clear(identity string, kind TimerKind, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kinds, ok := t.slots[identity]
	if !ok {
		return
	}
	slot, ok := kinds[kind]
	if !ok || slot.gen != gen {
		return
	}
	delete(kinds, kind)
	if len(kinds) == 0 {
		delete(t.slots, identity)
	}
}

// Cancel stops a pending timer of the given kind, if any.
func (t *Timers) Cancel(identity string, kind TimerKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if kinds, ok := t.slots[identity]; ok {
		if slot, ok := kinds[kind]; ok {
			slot.timer.Stop()
			delete(kinds, kind)
		}
		if len(kinds) == 0 {
			delete(t.slots, identity)
		}
	}
}

// CancelAll stops every pending timer for the identity.
func (t *Timers) CancelAll(identity string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if kinds, ok := t.slots[identity]; ok {
		for _, slot := range kinds {
			slot.timer.Stop()
		}
		delete(t.slots, identity)
	}
}

// Pending reports whether a timer of the kind is armed (used by tests).
func (t *Timers) Pending(identity string, kind TimerKind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	kinds, ok := t.slots[identity]
	if !ok {
		return false
	}
	_, ok = kinds[kind]
	return ok
}
