// Package recovery persists session snapshots across process restarts and
// replays resume prompts on startup.
package recovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fotolote/intake-bot-go/internal/model"
)

const (
	snapshotFile = "sessions.json"
	tempSubdir   = "photos"
)

// Store keeps one JSON file of snapshots plus individual temp photo copies
// under the spool directory. Writes go through a temp file and rename.
type Store struct {
	mu    sync.Mutex
	dir   string
	clock clockwork.Clock
}

func NewStore(dir string, clock clockwork.Clock) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, tempSubdir), 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Store{dir: dir, clock: clock}, nil
}

func (s *Store) snapshotPath() string {
	return filepath.Join(s.dir, snapshotFile)
}

// load reads the snapshot map; a missing file yields an empty map.
func (s *Store) load() (map[string]model.SessionSnapshot, error) {
	data, err := os.ReadFile(s.snapshotPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]model.SessionSnapshot{}, nil
		}
		return nil, fmt.Errorf("read snapshots: %w", err)
	}

	var snaps map[string]model.SessionSnapshot
	if err := json.Unmarshal(data, &snaps); err != nil {
		return nil, fmt.Errorf("parse snapshots: %w", err)
	}
	return snaps, nil
}

func (s *Store) write(snaps map[string]model.SessionSnapshot) error {
	data, err := json.MarshalIndent(snaps, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshots: %w", err)
	}

	tmp := s.snapshotPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshots: %w", err)
	}
	if err := os.Rename(tmp, s.snapshotPath()); err != nil {
		return fmt.Errorf("replace snapshots: %w", err)
	}
	return nil
}

// Save writes or replaces the snapshot for its identity.
func (s *Store) Save(snap model.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps, err := s.load()
	if err != nil {
		return err
	}
	snaps[snap.Identity] = snap
	return s.write(snaps)
}

// Delete removes the identity's snapshot and its temp photo copies.
func (s *Store) Delete(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps, err := s.load()
	if err != nil {
		return err
	}

	snap, ok := snaps[identity]
	if !ok {
		return nil
	}

	for _, p := range snap.Photos {
		removeTemp(p.TempPath)
	}

	delete(snaps, identity)
	return s.write(snaps)
}

// DeleteTempPaths removes temp photo copies by path, for sessions whose
// snapshot entry no longer exists or is stale.
func (s *Store) DeleteTempPaths(paths []string) {
	for _, p := range paths {
		removeTemp(p)
	}
}

// SaveTempPhoto writes a durable copy of photo content for recovery.
func (s *Store) SaveTempPhoto(content []byte) (string, error) {
	path := filepath.Join(s.dir, tempSubdir, uuid.NewString())
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write temp photo: %w", err)
	}
	return path, nil
}

// LoadAll returns every persisted snapshot.
func (s *Store) LoadAll() (map[string]model.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Clear deletes the snapshot file. Temp copies referenced by live sessions
// stay; purged entries delete theirs individually.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.snapshotPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	return nil
}

func removeTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove temp photo copy")
	}
}
