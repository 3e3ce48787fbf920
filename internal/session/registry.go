package session

import (
	"sync"

	"github.com/fotolote/intake-bot-go/internal/model"
)

// entry pairs a session with its dispatch lock. The lock is held for the
// whole of one transition, which is what serializes events per identity.
type entry struct {
	mu   sync.Mutex
	sess *model.Session
	gone bool
}

// Registry owns the identity -> session mapping. Creation and removal are
// atomic with respect to dispatch: an entry removed while another event
// waits on its lock is marked gone, and the waiter re-acquires.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: map[string]*entry{}}
}

// acquire returns the locked entry for the identity, creating the session
// with create when absent. With a nil create it returns nil for unknown
// identities.
func (r *Registry) acquire(identity string, create func() *model.Session) *entry {
	for {
		r.mu.Lock()
		e, ok := r.entries[identity]
		if !ok {
			if create == nil {
				r.mu.Unlock()
				return nil
			}
			e = &entry{sess: create()}
			r.entries[identity] = e
		}
		r.mu.Unlock()

		e.mu.Lock()
		if e.gone {
			e.mu.Unlock()
			continue
		}
		return e
	}
}

func (r *Registry) release(e *entry) {
	e.mu.Unlock()
}

// remove deletes the identity while its entry lock is held.
func (r *Registry) remove(identity string, e *entry) {
	r.mu.Lock()
	delete(r.entries, identity)
	r.mu.Unlock()
	e.gone = true
}

// Restore inserts a rebuilt session (crash recovery). Existing sessions are
// not overwritten.
func (r *Registry) Restore(sess *model.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[sess.Identity]; ok {
		return false
	}
	r.entries[sess.Identity] = &entry{sess: sess}
	return true
}

// Identities snapshots the currently known identities.
func (r *Registry) Identities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns a copy of the session for read-only inspection, or nil.
func (r *Registry) Snapshot(identity string) *model.Session {
	e := r.acquire(identity, nil)
	if e == nil {
		return nil
	}
	defer r.release(e)

	copied := *e.sess
	return &copied
}
