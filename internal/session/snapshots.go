package session

import "github.com/fotolote/intake-bot-go/internal/model"

// SnapshotStore persists session snapshots for crash recovery. Implemented
// by the recovery package; faked in tests.
type SnapshotStore interface {
	// Save writes or replaces the snapshot for its identity.
	Save(snap model.SessionSnapshot) error
	// Delete removes the identity's snapshot and the temp photo copies the
	// snapshot file lists for it.
	Delete(identity string) error
	// DeleteTempPaths removes temp photo copies by path. Needed for
	// sessions whose on-disk snapshot is absent or stale (recovered
	// sessions after the startup sweep, photos appended outside a
	// snapshot-worthy state).
	DeleteTempPaths(paths []string)
	// SaveTempPhoto writes a durable copy of photo content and returns its
	// path, for reloading after a restart.
	SaveTempPhoto(content []byte) (string, error)
}

type noopSnapshots struct{}

func (noopSnapshots) Save(model.SessionSnapshot) error     { return nil }
func (noopSnapshots) Delete(string) error                  { return nil }
func (noopSnapshots) DeleteTempPaths([]string)             {}
func (noopSnapshots) SaveTempPhoto([]byte) (string, error) { return "", nil }

// NoopSnapshots disables recovery persistence (tests, ephemeral setups).
var NoopSnapshots SnapshotStore = noopSnapshots{}
