package scheduler

import (
	"context"
	"errors"
	"fmt"

	"matchbet/ingestion/internal/ingest"
	"matchbet/ingestion/internal/reconciler"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Runner performs one ingestion pass
type Runner interface {
	Run(ctx context.Context) (reconciler.Summary, error)
}

// Scheduler triggers ingestion runs on a cron schedule
type Scheduler struct {
	spec   string
	runner Runner
	cron   *cron.Cron
}

// NewScheduler creates a new scheduler instance
func NewScheduler(spec string, runner Runner) *Scheduler {
	return &Scheduler{
		spec:   spec,
		runner: runner,
		cron:   cron.New(),
	}
}

// Start registers the ingestion job and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule ingestion: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.spec).
		Msg("Ingestion scheduled")

	return nil
}

// RunOnce runs ingestion and logs the outcome. Overlapping runs are
// skipped, not queued.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	log.Info().Msg("Running scheduled ingestion...")
	summary, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, ingest.ErrRunInProgress):
		log.Info().Msg("Previous ingestion still running, skipping this tick")
	case err != nil:
		log.Error().Err(err).Msg("Scheduled ingestion failed")
	default:
		log.Info().
			Int("created", summary.Created).
			Int("updated", summary.Updated).
			Int("unchanged", summary.Unchanged).
			Msg("Scheduled ingestion finished")
	}
}

// Stop stops the scheduler and waits for a running job to return
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		// Stop returns a context that is done once running jobs return
		<-s.cron.Stop().Done()
	}

	log.Info().Msg("Scheduler stopped")
}
