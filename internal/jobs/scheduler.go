// Package jobs runs the periodic maintenance tasks of the API process. Work
// is not done here; the scheduler publishes a task for whoever consumes the
// publisher, normally the worker.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"wheeldeals/internal/events"
)

const defaultSweep = "@every 1h"

type Scheduler struct {
	cron      *cron.Cron
	publisher events.Publisher
	sweepSpec string
	now       func() time.Time
	log       zerolog.Logger
}

func NewScheduler(publisher events.Publisher, sweepSpec string, log zerolog.Logger) *Scheduler {
	if sweepSpec == "" {
		sweepSpec = defaultSweep
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		publisher: publisher,
		sweepSpec: sweepSpec,
		now:       time.Now,
		log:       log,
	}
}

// Start registers the jobs and starts the cron loop. A nil publisher means
// there is nobody to hand work to and the scheduler stays idle.
func (s *Scheduler) Start() error {
	if s.publisher == nil {
		return nil
	}
	if _, err := s.cron.AddFunc(s.sweepSpec, s.enqueueGuestCleanup); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("guest_sweep", s.sweepSpec).Msg("scheduler started")
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) enqueueGuestCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, events.Event{Type: events.GuestCleanup, At: s.now().UTC()}); err != nil {
		s.log.Error().Err(err).Msg("enqueue guest cleanup failed")
	}
}
