package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fotolote/intake-bot-go/internal/config"
	"github.com/fotolote/intake-bot-go/internal/repository"
)

// Expirer is the piece of the session machine the sweep needs.
type Expirer interface {
	ExpireIdle(threshold time.Duration) int
}

// SweepJob discards sessions that went quiet past the idle threshold and
// prunes old activity rows once a day.
type SweepJob struct {
	machine      Expirer
	activityRepo repository.ActivityRepository
	interval     time.Duration
	idle         time.Duration
	lastPrune    time.Time
	done         chan struct{}
}

func NewSweepJob(machine Expirer, activityRepo repository.ActivityRepository, interval, idle time.Duration) *SweepJob {
	return &SweepJob{
		machine:      machine,
		activityRepo: activityRepo,
		interval:     interval,
		idle:         idle,
		done:         make(chan struct{}),
	}
}

func (j *SweepJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("idle", j.idle).Msg("sweep job started")
}

func (j *SweepJob) Stop() {
	close(j.done)
	log.Info().Msg("sweep job stopped")
}

func (j *SweepJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *SweepJob) sweep() {
	if n := j.machine.ExpireIdle(j.idle); n > 0 {
		log.Info().Int("count", n).Msg("expired idle sessions")
	}

	if j.activityRepo == nil || time.Since(j.lastPrune) < 24*time.Hour {
		return
	}
	j.lastPrune = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-config.ActivityRetention)
	count, err := j.activityRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune old activities")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("pruned old activities")
	}
}
