// Package session implements the per-sender batch intake state machine,
// the session registry that owns it, and the timers that drive reminders,
// auto-commit timeouts and photo-feedback debouncing.
package session

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fotolote/intake-bot-go/internal/legend"
	"github.com/fotolote/intake-bot-go/internal/model"
	"github.com/fotolote/intake-bot-go/internal/report"
	"github.com/fotolote/intake-bot-go/internal/storage"
	"github.com/fotolote/intake-bot-go/internal/transport"
	"github.com/fotolote/intake-bot-go/internal/util"
)

// Options carries the tunables observed by the machine.
type Options struct {
	MinPhotos        int
	Reminder         time.Duration
	Timeout          time.Duration
	Debounce         time.Duration
	SupervisorChatID string
	ForwardAttempts  int
	ForwardDelay     time.Duration
	// StorageLabel names the commit destination in user messages
	// ("OneDrive" or "pasta local").
	StorageLabel string
}

// Machine consumes inbound events (photo, text, timer fired) and drives
// session transitions, side-effecting outbound messages and storage and
// report calls. One transition runs at a time per identity.
type Machine struct {
	registry  *Registry
	timers    *Timers
	sender    transport.Sender
	store     storage.Store
	snapshots SnapshotStore
	reports   report.Logger
	clock     clockwork.Clock
	opts      Options
}

func NewMachine(
	registry *Registry,
	timers *Timers,
	sender transport.Sender,
	store storage.Store,
	snapshots SnapshotStore,
	reports report.Logger,
	clock clockwork.Clock,
	opts Options,
) *Machine {
	return &Machine{
		registry:  registry,
		timers:    timers,
		sender:    sender,
		store:     store,
		snapshots: snapshots,
		reports:   reports,
		clock:     clock,
		opts:      opts,
	}
}

func (m *Machine) newSession(identity, chatID, collaboratorName string) func() *model.Session {
	return func() *model.Session {
		s := &model.Session{
			Identity:         identity,
			ChatID:           chatID,
			State:            model.StateIdle,
			CollaboratorName: collaboratorName,
			LastUpdate:       m.clock.Now(),
		}
		s.ResetBatch()
		return s
	}
}

// dispatch runs fn holding the identity's dispatch lock. Panics are caught
// here so one bad event cannot take the process or other sessions down.
func (m *Machine) dispatch(identity string, create func() *model.Session, fn func(ctx context.Context, e *entry, s *model.Session)) {
	e := m.registry.acquire(identity, create)
	if e == nil {
		return
	}
	defer m.registry.release(e)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("identity", identity).Msg("event dropped after panic in transition")
		}
	}()

	ctx := context.Background()
	fn(ctx, e, e.sess)
}

func (m *Machine) send(ctx context.Context, s *model.Session, text string) {
	if err := m.sender.SendText(ctx, s.ChatID, text); err != nil {
		log.Error().Err(err).Str("identity", s.Identity).Msg("failed to send message")
	}
}

// persist snapshots the session if its state should survive a restart.
func (m *Machine) persist(s *model.Session) {
	if !s.State.ReminderWorthy() {
		return
	}
	if err := m.snapshots.Save(model.SnapshotOf(s, m.clock.Now())); err != nil {
		log.Error().Err(err).Str("identity", s.Identity).Msg("failed to save session snapshot")
	}
}

// discard removes the session, cancels its timers and deletes its snapshot
// and temp copies. Temp paths are taken from the live session, not only the
// snapshot file: recovered sessions have no file entry (the startup sweep
// cleared it), and CONFIRMING_AS appends never reached it.
func (m *Machine) discard(e *entry, s *model.Session) {
	m.timers.CancelAll(s.Identity)
	if err := m.snapshots.Delete(s.Identity); err != nil {
		log.Error().Err(err).Str("identity", s.Identity).Msg("failed to delete session snapshot")
	}
	m.snapshots.DeleteTempPaths(s.TempPaths())
	m.registry.remove(s.Identity, e)
	log.Info().Str("identity", s.Identity).Int("photos", len(s.Photos)).Msg("session discarded")
}

// HandlePhoto processes one downloaded photo, with its optional caption.
func (m *Machine) HandlePhoto(identity, chatID, displayName, fileName string, content []byte, caption string) {
	m.dispatch(identity, m.newSession(identity, chatID, displayName), func(ctx context.Context, e *entry, s *model.Session) {
		s.LastUpdate = m.clock.Now()
		s.ChatID = chatID

		switch s.State {
		case model.StateIdle:
			s.ResetBatch()
			s.State = model.StateCollecting
			m.appendPhoto(ctx, s, fileName, content, caption)

		case model.StateCollecting, model.StateConfirmingAS:
			m.appendPhoto(ctx, s, fileName, content, caption)

		case model.StateReadyToSend:
			// Late extra photo: take it, restate the summary, re-arm
			// the auto-commit timeout.
			m.storePhoto(s, fileName, content)
			m.persist(s)
			m.send(ctx, s, msgSummary(s))
			m.armTimeout(s.Identity)

		case model.StateWaitingAction, model.StateAddingMore:
			// A photo is the clearest possible "yes, more photos".
			if s.State == model.StateWaitingAction {
				s.ResetBatch()
			}
			s.State = model.StateCollecting
			m.appendPhoto(ctx, s, fileName, content, caption)

		case model.StateRecovering:
			m.send(ctx, s, msgRecoveryPrompt(s))
		}
	})
}

// storePhoto hashes, dedup-checks and appends the photo, writing its temp
// recovery copy.
func (m *Machine) storePhoto(s *model.Session, fileName string, content []byte) model.Photo {
	hash, duplicate := s.Dedup.Add(content)
	if duplicate {
		s.DuplicateCount++
		log.Debug().Str("identity", s.Identity).Str("hash", util.Truncate(hash, 12)).Msg("duplicate photo in batch")
	}

	tempPath, err := m.snapshots.SaveTempPhoto(content)
	if err != nil {
		log.Error().Err(err).Str("identity", s.Identity).Msg("failed to write temp photo copy")
		tempPath = ""
	}

	photo := model.Photo{
		Content:   content,
		FileName:  fileName,
		Hash:      hash,
		Duplicate: duplicate,
		TempPath:  tempPath,
	}
	s.Photos = append(s.Photos, photo)
	return photo
}

// appendPhoto is the COLLECTING-path photo arrival: store, handle caption
// code, then either complete the batch or debounce a progress message.
func (m *Machine) appendPhoto(ctx context.Context, s *model.Session, fileName string, content []byte, caption string) {
	m.storePhoto(s, fileName, content)

	if caption != "" {
		m.handleCodeText(ctx, s, caption, true)
	}

	m.persist(s)

	if s.State == model.StateConfirmingAS {
		// Still waiting on the yes/no; don't start competing prompts.
		return
	}

	if m.batchComplete(s) {
		m.enterReadyToSend(ctx, s)
		return
	}

	m.timers.Arm(s.Identity, TimerReminder, m.opts.Reminder, func() { m.onReminder(s.Identity) })
	m.timers.Arm(s.Identity, TimerDebounce, m.opts.Debounce, func() { m.onDebounce(s.Identity) })
}

func (m *Machine) batchComplete(s *model.Session) bool {
	return len(s.Photos) >= m.opts.MinPhotos && s.Legend != ""
}

// enterReadyToSend cancels the reminder and debounce, presents the batch
// summary and arms the auto-commit timeout.
func (m *Machine) enterReadyToSend(ctx context.Context, s *model.Session) {
	s.State = model.StateReadyToSend
	m.timers.Cancel(s.Identity, TimerReminder)
	m.timers.Cancel(s.Identity, TimerDebounce)
	m.persist(s)
	m.send(ctx, s, msgSummary(s))
	m.armTimeout(s.Identity)
}

func (m *Machine) armTimeout(identity string) {
	m.timers.Arm(identity, TimerTimeout, m.opts.Timeout, func() { m.onTimeout(identity) })
}

// HandleText processes a text message: commands, yes/no answers and code
// candidates, depending on the session state.
func (m *Machine) HandleText(identity, chatID, displayName, text string) {
	m.dispatch(identity, m.newSession(identity, chatID, displayName), func(ctx context.Context, e *entry, s *model.Session) {
		s.LastUpdate = m.clock.Now()
		s.ChatID = chatID

		cmd := parseCommand(text)

		// Commands that behave the same in every state.
		switch cmd {
		case cmdHelp:
			m.send(ctx, s, msgHelp(m.opts.MinPhotos))
			if s.State == model.StateIdle {
				m.registry.remove(s.Identity, e)
			}
			return
		case cmdStatus:
			if s.State == model.StateIdle {
				m.send(ctx, s, msgNoBatchYet)
				m.registry.remove(s.Identity, e)
			} else {
				m.send(ctx, s, msgStatus(s, m.opts.MinPhotos))
			}
			return
		case cmdCancel:
			if s.State == model.StateIdle {
				m.send(ctx, s, msgNoBatchYet)
				m.registry.remove(s.Identity, e)
				return
			}
			m.send(ctx, s, msgCancelled(len(s.Photos)))
			m.discard(e, s)
			return
		}

		switch s.State {
		case model.StateIdle:
			m.textInIdle(ctx, e, s, cmd)
		case model.StateCollecting:
			m.textInCollecting(ctx, e, s, cmd, text)
		case model.StateConfirmingAS:
			m.textInConfirming(ctx, s, cmd)
		case model.StateReadyToSend:
			m.textInReadyToSend(ctx, e, s, cmd)
		case model.StateAddingMore:
			m.textInAddingMore(ctx, e, s, cmd)
		case model.StateWaitingAction:
			m.textInWaitingAction(ctx, e, s, cmd)
		case model.StateRecovering:
			m.textInRecovering(ctx, e, s, cmd)
		}
	})
}

func (m *Machine) textInIdle(ctx context.Context, e *entry, s *model.Session, cmd command) {
	if cmd == cmdStart || cmd == cmdNext {
		s.ResetBatch()
		s.State = model.StateCollecting
		m.persist(s)
		m.timers.Arm(s.Identity, TimerReminder, m.opts.Reminder, func() { m.onReminder(s.Identity) })
		m.send(ctx, s, msgGreeting(m.opts.MinPhotos))
		return
	}

	// Anything else is ignored: no error banner for random text, and the
	// session created for this dispatch is dropped so stray messages do
	// not accrete empty IDLE entries.
	m.registry.remove(s.Identity, e)
}

// handleCodeText validates text as a code candidate and applies it to the
// session. fromCaption suppresses format-error replies for captions that
// are just captions.
func (m *Machine) handleCodeText(ctx context.Context, s *model.Session, text string, fromCaption bool) {
	res := legend.Validate(text)

	if !res.Valid {
		if fromCaption {
			return
		}
		switch res.Reason {
		case legend.ReasonMissingDigits:
			m.send(ctx, s, msgMissingDigits(res.Missing))
		case legend.ReasonTooManyDigits:
			m.send(ctx, s, msgTooManyDigits)
		case legend.ReasonWrongPrefix:
			m.send(ctx, s, msgWrongPrefix)
		}
		// Empty or non-numeric text is not a code attempt; stay silent.
		return
	}

	if s.Legend != "" {
		if s.Legend != res.Code {
			m.send(ctx, s, msgCodeConflict(s.Legend, res.Code))
		}
		return
	}

	if res.NeedsConfirmation {
		s.PendingLegend = res.Code
		s.State = model.StateConfirmingAS
		m.send(ctx, s, msgConfirmUnusualCode(res.Code))
		return
	}

	s.Legend = res.Code
	s.AskedForCode = false
	log.Info().Str("identity", s.Identity).Str("code", util.MaskCode(res.Code)).Msg("batch code registered")
	m.send(ctx, s, msgCodeRegistered(res.Code))
}

func (m *Machine) textInCollecting(ctx context.Context, e *entry, s *model.Session, cmd command, text string) {
	switch cmd {
	case cmdSend:
		m.sendCommand(ctx, e, s)
		return
	case cmdStart, cmdNext:
		m.send(ctx, s, msgGreeting(m.opts.MinPhotos))
		return
	case cmdYes, cmdNo:
		// Nothing pending to answer.
		return
	}

	m.handleCodeText(ctx, s, text, false)
	m.persist(s)

	if s.State == model.StateCollecting && m.batchComplete(s) {
		m.enterReadyToSend(ctx, s)
	}
}

// sendCommand is the explicit ENVIAR flow: complete batches commit, short
// ones get a corrective message, uncoded ones are prompted once for the
// code and commit uncoded on the second ENVIAR.
func (m *Machine) sendCommand(ctx context.Context, e *entry, s *model.Session) {
	if len(s.Photos) < m.opts.MinPhotos {
		m.send(ctx, s, msgIncomplete(len(s.Photos), m.opts.MinPhotos))
		return
	}

	if s.Legend == "" {
		if !s.AskedForCode {
			s.AskedForCode = true
			m.persist(s)
			m.send(ctx, s, msgUncodedAsk)
			return
		}
		m.commit(ctx, e, s)
		return
	}

	m.commit(ctx, e, s)
}

func (m *Machine) textInConfirming(ctx context.Context, s *model.Session, cmd command) {
	switch cmd {
	case cmdYes:
		s.Legend = s.PendingLegend
		s.PendingLegend = ""
		s.State = model.StateCollecting
		log.Info().Str("identity", s.Identity).Str("code", util.MaskCode(s.Legend)).Msg("unusual batch code confirmed")
		m.send(ctx, s, msgCodeRegistered(s.Legend))
		m.persist(s)
		if m.batchComplete(s) {
			m.enterReadyToSend(ctx, s)
		} else {
			m.timers.Arm(s.Identity, TimerReminder, m.opts.Reminder, func() { m.onReminder(s.Identity) })
		}
	case cmdNo:
		s.PendingLegend = ""
		s.State = model.StateCollecting
		m.persist(s)
		m.send(ctx, s, msgAskCorrectCode)
	default:
		m.send(ctx, s, msgAskYesNo)
	}
}

func (m *Machine) textInReadyToSend(ctx context.Context, e *entry, s *model.Session, cmd command) {
	switch cmd {
	case cmdYes, cmdSend:
		m.timers.Cancel(s.Identity, TimerTimeout)
		m.commit(ctx, e, s)
	case cmdNo:
		m.timers.Cancel(s.Identity, TimerTimeout)
		s.State = model.StateAddingMore
		m.send(ctx, s, msgAskAddMore)
	default:
		m.send(ctx, s, msgAskYesNo)
	}
}

func (m *Machine) textInAddingMore(ctx context.Context, e *entry, s *model.Session, cmd command) {
	switch cmd {
	case cmdYes:
		s.State = model.StateCollecting
		m.persist(s)
		m.timers.Arm(s.Identity, TimerReminder, m.opts.Reminder, func() { m.onReminder(s.Identity) })
		m.send(ctx, s, msgResume)
	case cmdNo:
		m.send(ctx, s, msgCancelled(len(s.Photos)))
		m.discard(e, s)
	default:
		m.send(ctx, s, msgAskYesNo)
	}
}

func (m *Machine) textInWaitingAction(ctx context.Context, e *entry, s *model.Session, cmd command) {
	switch cmd {
	case cmdYes, cmdStart, cmdNext:
		s.ResetBatch()
		s.State = model.StateCollecting
		m.persist(s)
		m.timers.Arm(s.Identity, TimerReminder, m.opts.Reminder, func() { m.onReminder(s.Identity) })
		m.send(ctx, s, msgNewBatch)
	case cmdNo:
		m.send(ctx, s, msgGoodbye)
		m.discard(e, s)
	default:
		m.send(ctx, s, msgAskYesNo)
	}
}

func (m *Machine) textInRecovering(ctx context.Context, e *entry, s *model.Session, cmd command) {
	switch cmd {
	case cmdYes:
		if m.batchComplete(s) {
			m.enterReadyToSend(ctx, s)
			return
		}
		s.State = model.StateCollecting
		m.persist(s)
		m.timers.Arm(s.Identity, TimerReminder, m.opts.Reminder, func() { m.onReminder(s.Identity) })
		m.send(ctx, s, msgResume)
	case cmdNo:
		m.send(ctx, s, msgRecoDiscard)
		m.discard(e, s)
	default:
		m.send(ctx, s, msgRecoveryPrompt(s))
	}
}

// onReminder fires at most once per arm; any state change re-arms or
// cancels it. The session is re-fetched so a stale fire sees live state.
func (m *Machine) onReminder(identity string) {
	m.dispatch(identity, nil, func(ctx context.Context, e *entry, s *model.Session) {
		if s.State != model.StateCollecting {
			return
		}
		m.send(ctx, s, msgReminder(s, m.opts.MinPhotos))
	})
}

// onDebounce sends the consolidated photo-arrival feedback.
func (m *Machine) onDebounce(identity string) {
	m.dispatch(identity, nil, func(ctx context.Context, e *entry, s *model.Session) {
		if s.State != model.StateCollecting || len(s.Photos) == 0 {
			return
		}
		m.send(ctx, s, msgProgress(s, m.opts.MinPhotos))
	})
}

// onTimeout finalizes an unanswered READY_TO_SEND (auto-commit) or an
// unanswered WAITING_ACTION (discard).
func (m *Machine) onTimeout(identity string) {
	m.dispatch(identity, nil, func(ctx context.Context, e *entry, s *model.Session) {
		switch s.State {
		case model.StateReadyToSend:
			m.send(ctx, s, msgAutoCommit)
			m.commit(ctx, e, s)
		case model.StateWaitingAction:
			m.discard(e, s)
		}
	})
}

// Restore places a rebuilt session under machine control (crash recovery).
func (m *Machine) Restore(s *model.Session) bool {
	return m.registry.Restore(s)
}

// PromptRecovery sends the resume/discard question for a restored session.
func (m *Machine) PromptRecovery(identity string) {
	m.dispatch(identity, nil, func(ctx context.Context, e *entry, s *model.Session) {
		if s.State != model.StateRecovering {
			return
		}
		m.send(ctx, s, msgRecoveryPrompt(s))
	})
}

// ExpireIdle discards sessions with no activity past the threshold. This is
// the defense-in-depth sweep, independent of per-session timers.
func (m *Machine) ExpireIdle(threshold time.Duration) int {
	now := m.clock.Now()
	expired := 0
	for _, identity := range m.registry.Identities() {
		m.dispatch(identity, nil, func(ctx context.Context, e *entry, s *model.Session) {
			if now.Sub(s.LastUpdate) <= threshold {
				return
			}
			log.Info().Str("identity", identity).Int("photos", len(s.Photos)).Msg("idle session expired")
			m.discard(e, s)
			expired++
		})
	}
	return expired
}
