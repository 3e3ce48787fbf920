// Package report accumulates daily activity statistics and delivers the
// daily summary by email.
package report

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fotolote/intake-bot-go/internal/model"
	"github.com/fotolote/intake-bot-go/internal/repository"
)

// Logger is the call contract the state machine consumes.
type Logger interface {
	LogActivity(ctx context.Context, params model.CreateActivityParams)
}

// Accumulator keeps the running daily totals in memory and persists every
// activity as a Postgres row, so the summary survives restarts.
type Accumulator struct {
	repo   repository.ActivityRepository
	mailer *Mailer
	clock  clockwork.Clock

	mu    sync.Mutex
	day   string // YYYY-MM-DD of the totals below
	stats model.ActivitySummary
}

func NewAccumulator(repo repository.ActivityRepository, mailer *Mailer, clock clockwork.Clock) *Accumulator {
	return &Accumulator{
		repo:   repo,
		mailer: mailer,
		clock:  clock,
		day:    clock.Now().Format("2006-01-02"),
	}
}

// LogActivity records one event. Persistence failures are logged and never
// propagate into the conversational flow.
func (a *Accumulator) LogActivity(ctx context.Context, params model.CreateActivityParams) {
	a.mu.Lock()
	today := a.clock.Now().Format("2006-01-02")
	if a.day != today {
		a.day = today
		a.stats = model.ActivitySummary{}
	}

	switch params.Type {
	case model.ActivityBatchComplete, model.ActivityBatchNoCode:
		a.stats.Batches++
		if params.Type == model.ActivityBatchNoCode {
			a.stats.BatchesNoCode++
		}
		a.stats.Photos += params.PhotoCount
		a.stats.Duplicates += params.DuplicateCount
		a.stats.Saved += params.SavedCount
		a.stats.Failed += params.FailedCount
	case model.ActivityRejectedSender:
		a.stats.RejectedSenders++
	case model.ActivityForwardFailed:
		a.stats.ForwardFailures++
	}
	a.mu.Unlock()

	if _, err := a.repo.Create(ctx, params); err != nil {
		log.Error().Err(err).Str("type", string(params.Type)).Msg("failed to persist activity")
	}
}

// Stats returns a copy of today's running totals.
func (a *Accumulator) Stats() model.ActivitySummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Flush renders and emails the daily summary. The Postgres rows are the
// source of truth; the in-memory totals back them up if the query fails.
func (a *Accumulator) Flush(ctx context.Context) error {
	now := a.clock.Now()

	summary, err := a.repo.SummaryForDay(ctx, now)
	if err != nil {
		log.Warn().Err(err).Msg("summary query failed, using in-memory totals")
		fallback := a.Stats()
		summary = &fallback
	}

	activities, err := a.repo.ListForDay(ctx, now)
	if err != nil {
		log.Warn().Err(err).Msg("activity list query failed, report will omit details")
		activities = nil
	}

	body := renderReport(now.Format("2006-01-02"), summary, activities)

	if a.mailer == nil {
		log.Info().Msg("mailer not configured, daily report logged only")
		log.Info().
			Int("batches", summary.Batches).
			Int("photos", summary.Photos).
			Int("failed", summary.Failed).
			Msg("daily summary")
		return nil
	}

	subject := fmt.Sprintf("Relatorio Bot de Fotos - %s", now.Format("2006-01-02"))
	if err := a.mailer.Send(ctx, subject, body); err != nil {
		return fmt.Errorf("send daily report: %w", err)
	}

	log.Info().Msg("daily report sent")
	return nil
}

func renderReport(day string, s *model.ActivitySummary, activities []model.Activity) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Relatorio Diario - Bot de Fotos\nData: %s\n\n", day)
	fmt.Fprintf(&b, "Total de lotes: %d\n", s.Batches)
	fmt.Fprintf(&b, "Lotes sem AS: %d\n", s.BatchesNoCode)
	fmt.Fprintf(&b, "Total de fotos: %d\n", s.Photos)
	fmt.Fprintf(&b, "Fotos duplicadas: %d\n", s.Duplicates)
	fmt.Fprintf(&b, "Uploads com sucesso: %d\n", s.Saved)
	fmt.Fprintf(&b, "Uploads falhos: %d\n", s.Failed)
	fmt.Fprintf(&b, "Remetentes rejeitados: %d\n", s.RejectedSenders)
	fmt.Fprintf(&b, "Falhas de encaminhamento: %d\n", s.ForwardFailures)

	if len(activities) > 0 {
		b.WriteString("\nDetalhes:\n")
		for _, act := range activities {
			who := act.Collaborator
			if who == "" {
				who = act.Sender
			}
			code := act.Code
			if code == "" {
				code = "SEM_AS"
			}
			fmt.Fprintf(&b, "- %s  %-16s %s  AS %s (%d fotos)\n",
				act.CreatedAt.Format("15:04"), act.Type, who, code, act.PhotoCount)
		}
	}

	return b.String()
}
