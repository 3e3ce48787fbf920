package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fotolote/intake-bot-go/internal/config"
	"github.com/fotolote/intake-bot-go/internal/report"
)

// ReportJob flushes the daily summary at the configured wall-clock time.
type ReportJob struct {
	accumulator *report.Accumulator
	done        chan struct{}
}

func NewReportJob(accumulator *report.Accumulator) *ReportJob {
	return &ReportJob{
		accumulator: accumulator,
		done:        make(chan struct{}),
	}
}

func (j *ReportJob) Start() {
	go j.run()
	log.Info().
		Int("hour", config.ReportHour).
		Int("minute", config.ReportMinute).
		Msg("report job started")
}

func (j *ReportJob) Stop() {
	close(j.done)
	log.Info().Msg("report job stopped")
}

func (j *ReportJob) run() {
	for {
		select {
		case <-j.done:
			return
		case <-time.After(untilNextReport(time.Now())):
			j.flush()
		}
	}
}

func (j *ReportJob) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := j.accumulator.Flush(ctx); err != nil {
		log.Error().Err(err).Msg("daily report flush failed")
	}
}

func untilNextReport(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), config.ReportHour, config.ReportMinute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
