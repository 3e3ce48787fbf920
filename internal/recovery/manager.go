package recovery

import (
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fotolote/intake-bot-go/internal/model"
)

// Restorer is the slice of the session machine the manager needs.
type Restorer interface {
	Restore(sess *model.Session) bool
	PromptRecovery(identity string)
}

// Manager reconciles persisted snapshots on startup, before new inbound
// events are processed.
type Manager struct {
	store     *Store
	machine   Restorer
	clock     clockwork.Clock
	staleness time.Duration
}

func NewManager(store *Store, machine Restorer, clock clockwork.Clock, staleness time.Duration) *Manager {
	return &Manager{store: store, machine: machine, clock: clock, staleness: staleness}
}

// Run loads all snapshots, purges stale ones, rebuilds the rest as
// RECOVERING sessions with a resume/discard prompt, then deletes the
// snapshot file (it is rewritten as sessions reach reminder-worthy states
// again).
func (m *Manager) Run() error {
	snaps, err := m.store.LoadAll()
	if err != nil {
		return err
	}

	now := m.clock.Now()
	restored, purged := 0, 0

	for identity, snap := range snaps {
		if snap.Stale(now, m.staleness) {
			m.purge(snap)
			purged++
			continue
		}

		if !snap.State.ReminderWorthy() {
			m.purge(snap)
			purged++
			continue
		}

		sess, ok := m.rebuild(snap)
		if !ok {
			m.purge(snap)
			purged++
			continue
		}

		if !m.machine.Restore(sess) {
			// An event for this identity beat us to it; drop the snapshot.
			m.purge(snap)
			continue
		}

		m.machine.PromptRecovery(identity)
		restored++
	}

	if err := m.store.Clear(); err != nil {
		return err
	}

	if restored > 0 || purged > 0 {
		log.Info().Int("restored", restored).Int("purged", purged).Msg("session recovery finished")
	}
	return nil
}

// rebuild is the snapshot-to-session mapping, reloading photo bytes from
// the temp copies. A snapshot whose every photo copy is gone is useless.
func (m *Manager) rebuild(snap model.SessionSnapshot) (*model.Session, bool) {
	sess := &model.Session{
		Identity:         snap.Identity,
		ChatID:           snap.ChatID,
		State:            model.StateRecovering,
		CollaboratorName: snap.CollaboratorName,
		TodayCount:       snap.TodayCount,
		LastUpdate:       m.clock.Now(),
	}
	sess.ResetBatch()
	sess.Legend = snap.Legend

	for _, p := range snap.Photos {
		content, err := os.ReadFile(p.TempPath)
		if err != nil {
			log.Warn().Err(err).Str("identity", snap.Identity).Str("path", p.TempPath).Msg("temp photo copy missing, skipping")
			continue
		}

		hash, duplicate := sess.Dedup.Add(content)
		if duplicate {
			sess.DuplicateCount++
		}
		sess.Photos = append(sess.Photos, model.Photo{
			Content:   content,
			FileName:  p.FileName,
			Hash:      hash,
			Duplicate: duplicate,
			TempPath:  p.TempPath,
		})
	}

	if len(snap.Photos) > 0 && len(sess.Photos) == 0 {
		return nil, false
	}
	return sess, true
}

func (m *Manager) purge(snap model.SessionSnapshot) {
	for _, p := range snap.Photos {
		removeTemp(p.TempPath)
	}
}
