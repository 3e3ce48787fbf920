package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fotolote/intake-bot-go/internal/model"
	"github.com/fotolote/intake-bot-go/internal/util"
)

// commit persists the batch. On full success the photos are forwarded to
// the supervisor broadcast, the activity is reported, per-batch state is
// cleared and the session moves to WAITING_ACTION with its timeout armed.
// On partial failure the session stays in READY_TO_SEND so the same commit
// can be retried.
func (m *Machine) commit(ctx context.Context, e *entry, s *model.Session) {
	s.State = model.StateReadyToSend

	m.send(ctx, s, msgUploading(len(s.Photos), s.Legend, m.opts.StorageLabel))

	res := m.store.SaveBatch(ctx, s.Photos, s.CollaboratorName, s.Legend)

	if !res.FullSuccess() {
		log.Warn().
			Str("identity", s.Identity).
			Int("saved", res.Saved).
			Int("failed", res.Failed).
			Msg("batch commit incomplete, keeping session for retry")
		m.send(ctx, s, msgUploadPartial(res.Saved, res.Failed))
		// No automatic retry: the user answers SIM to try again, or the
		// idle sweep eventually reclaims the session.
		m.persist(s)
		return
	}

	m.forwardToSupervisor(ctx, s)

	activityType := model.ActivityBatchComplete
	if s.Legend == "" {
		activityType = model.ActivityBatchNoCode
	}
	m.reports.LogActivity(ctx, model.CreateActivityParams{
		Type:           activityType,
		Sender:         s.Identity,
		Collaborator:   s.CollaboratorName,
		Code:           s.Legend,
		PhotoCount:     res.Total,
		DuplicateCount: s.DuplicateCount,
		SavedCount:     res.Saved,
		FailedCount:    res.Failed,
		Detail:         res.Folder,
	})

	log.Info().
		Str("identity", s.Identity).
		Str("code", util.MaskCode(s.Legend)).
		Int("photos", res.Saved).
		Int("duplicates", s.DuplicateCount).
		Str("folder", res.Folder).
		Msg("batch committed")

	if err := m.snapshots.Delete(s.Identity); err != nil {
		log.Error().Err(err).Str("identity", s.Identity).Msg("failed to delete snapshot after commit")
	}
	m.snapshots.DeleteTempPaths(s.TempPaths())

	s.TodayCount += res.Saved
	s.ResetBatch()
	s.State = model.StateWaitingAction
	m.send(ctx, s, msgUploadOK(res.Saved))
	m.armTimeout(s.Identity)
}

// forwardToSupervisor copies the committed photos to the broadcast chat
// with a bounded retry per photo. Failures never roll back the commit; they
// are logged and surfaced in the daily report only.
func (m *Machine) forwardToSupervisor(ctx context.Context, s *model.Session) {
	if m.opts.SupervisorChatID == "" {
		return
	}

	header := "Lote de " + s.CollaboratorName
	if s.CollaboratorName == "" {
		header = "Lote de " + s.Identity
	}
	if s.Legend != "" {
		header += " - AS " + s.Legend
	}
	if err := m.sender.SendText(ctx, m.opts.SupervisorChatID, header); err != nil {
		log.Warn().Err(err).Msg("supervisor broadcast header failed")
	}

	failed := 0
	for i, photo := range s.Photos {
		if err := m.forwardPhoto(ctx, photo); err != nil {
			failed++
			log.Warn().Err(err).Int("photo", i+1).Msg("supervisor forward gave up")
		}
	}

	if failed > 0 {
		m.reports.LogActivity(ctx, model.CreateActivityParams{
			Type:         model.ActivityForwardFailed,
			Sender:       s.Identity,
			Collaborator: s.CollaboratorName,
			Code:         s.Legend,
			PhotoCount:   failed,
			Detail:       "supervisor broadcast",
		})
	}
}

func (m *Machine) forwardPhoto(ctx context.Context, photo model.Photo) error {
	var err error
	for attempt := 1; attempt <= m.opts.ForwardAttempts; attempt++ {
		err = m.sender.SendImage(ctx, m.opts.SupervisorChatID, photo.FileName, photo.Content)
		if err == nil {
			return nil
		}
		if attempt < m.opts.ForwardAttempts {
			m.clock.Sleep(m.opts.ForwardDelay)
		}
	}
	return err
}
