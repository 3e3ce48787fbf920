// Package dedup flags repeated photo content within a single batch.
package dedup

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Hash returns the hex blake3 digest of the content.
func Hash(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Tracker accumulates content hashes for one batch. It is not safe for
// concurrent use; callers hold the session's dispatch lock.
type Tracker struct {
	seen map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{seen: map[string]struct{}{}}
}

// Add hashes the content and reports whether it repeats an earlier photo in
// the batch. The content is recorded either way.
func (t *Tracker) Add(content []byte) (hash string, duplicate bool) {
	hash = Hash(content)
	if _, ok := t.seen[hash]; ok {
		return hash, true
	}
	t.seen[hash] = struct{}{}
	return hash, false
}

// AddHash records a precomputed hash (used when rebuilding a batch from a
// recovery snapshot).
func (t *Tracker) AddHash(hash string) (duplicate bool) {
	if _, ok := t.seen[hash]; ok {
		return true
	}
	t.seen[hash] = struct{}{}
	return false
}

func (t *Tracker) Len() int {
	return len(t.seen)
}
