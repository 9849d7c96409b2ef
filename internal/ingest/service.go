// Package ingest runs one ingestion pass: fetch the bracket page, group and
// normalize its tokens, then reconcile every candidate match in order.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"matchbet/ingestion/internal/cache"
	"matchbet/ingestion/internal/metrics"
	"matchbet/ingestion/internal/models"
	"matchbet/ingestion/internal/reconciler"
	"matchbet/ingestion/internal/scrape"

	"github.com/rs/zerolog/log"
)

// ErrRunInProgress is returned when another run holds the ingestion lock
var ErrRunInProgress = errors.New("ingestion run already in progress")

const snapshotTTL = 24 * time.Hour

// Fetcher returns the raw cell texts of the bracket page
type Fetcher interface {
	FetchTokens(ctx context.Context) ([]string, error)
}

// Reconciler applies one candidate match to the record store
type Reconciler interface {
	Reconcile(ctx context.Context, c *models.CandidateMatch) (reconciler.Result, error)
}

// RunCache is the shared cache used to serialize runs across workers
type RunCache interface {
	AcquireLock(ctx context.Context, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, token string) error
	SaveSnapshot(ctx context.Context, snap cache.Snapshot, ttl time.Duration) error
}

// TeamLister lists teams so their ratings can be published after a run
type TeamLister interface {
	List(ctx context.Context) ([]*models.Team, error)
}

// Options holds the optional collaborators of a Service
type Options struct {
	Cache   RunCache   // nil disables the cross-process lock
	Teams   TeamLister // nil skips publishing team ratings
	LockTTL time.Duration
	Source  string
}

// Service runs ingestion passes
type Service struct {
	fetcher    Fetcher
	normalizer *scrape.Normalizer
	reconciler Reconciler
	opts       Options

	// mu keeps runs in this process sequential
	mu sync.Mutex
}

// NewService creates an ingestion service
func NewService(fetcher Fetcher, normalizer *scrape.Normalizer, rec Reconciler, opts Options) *Service {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	return &Service{
		fetcher:    fetcher,
		normalizer: normalizer,
		reconciler: rec,
		opts:       opts,
	}
}

// Run performs one ingestion pass and returns its counters. A fetch
// failure aborts the run before anything is written.
func (s *Service) Run(ctx context.Context) (reconciler.Summary, error) {
	start := time.Now()

	if !s.mu.TryLock() {
		return reconciler.Summary{}, ErrRunInProgress
	}
	defer s.mu.Unlock()

	release, err := s.lock(ctx)
	if err != nil {
		metrics.RecordRun("skipped", time.Since(start).Seconds())
		return reconciler.Summary{}, err
	}
	defer release()

	summary, err := s.run(ctx)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordRun(status, time.Since(start).Seconds())

	if err != nil {
		return summary, err
	}

	log.Info().
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("unchanged", summary.Unchanged).
		Int("skipped", summary.Skipped()).
		Dur("duration", time.Since(start)).
		Msg("Ingestion run complete")

	return summary, nil
}

func (s *Service) run(ctx context.Context) (reconciler.Summary, error) {
	var summary reconciler.Summary

	fetchStart := time.Now()
	tokens, err := s.fetcher.FetchTokens(ctx)
	if err != nil {
		metrics.RecordScrape("error", time.Since(fetchStart).Seconds(), 0)
		return summary, fmt.Errorf("failed to fetch bracket: %w", err)
	}
	metrics.RecordScrape("success", time.Since(fetchStart).Seconds(), len(tokens))

	s.saveSnapshot(ctx, tokens)

	groups := scrape.Group(tokens)
	log.Info().
		Int("tokens", len(tokens)).
		Int("groups", len(groups)).
		Msg("Bracket fetched")

	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("ingestion run interrupted after %d of %d groups: %w", i, len(groups), err)
		}

		candidate, err := s.normalizer.Normalize(group)
		if err != nil {
			s.skip(&summary, i, err)
			continue
		}

		result, err := s.reconciler.Reconcile(ctx, candidate)
		if err != nil {
			s.skip(&summary, i, err)
			continue
		}

		summary.Record(result)
		metrics.RecordReconciled(result.String())
		log.Debug().
			Str("team1", candidate.Team1).
			Str("team2", candidate.Team2).
			Time("scheduled_at", candidate.ScheduledAt).
			Str("result", result.String()).
			Msg("Match reconciled")
	}

	s.publishRatings(ctx)
	return summary, nil
}

func (s *Service) skip(summary *reconciler.Summary, index int, err error) {
	reason := summary.RecordSkip(err)
	metrics.RecordSkip(reason)

	event := log.Warn()
	if errors.Is(err, scrape.ErrUndetermined) {
		// Bracket slots awaiting earlier results are expected
		event = log.Debug()
	}
	event.
		Err(err).
		Int("group", index).
		Str("reason", reason).
		Msg("Skipping match group")
}

// lock takes the cross-process run lock. When the cache is unreachable the
// run continues unlocked and relies on the per-match transaction alone.
func (s *Service) lock(ctx context.Context) (func(), error) {
	if s.opts.Cache == nil {
		return func() {}, nil
	}

	token, err := s.opts.Cache.AcquireLock(ctx, s.opts.LockTTL)
	if errors.Is(err, cache.ErrLockHeld) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		log.Warn().Err(err).Msg("Run lock unavailable, continuing without it")
		return func() {}, nil
	}

	return func() {
		// The run context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.opts.Cache.ReleaseLock(releaseCtx, token); err != nil {
			log.Warn().Err(err).Msg("Failed to release run lock")
		}
	}, nil
}

func (s *Service) saveSnapshot(ctx context.Context, tokens []string) {
	if s.opts.Cache == nil {
		return
	}
	snap := cache.Snapshot{
		FetchedAt: time.Now().UTC(),
		Source:    s.opts.Source,
		Tokens:    tokens,
	}
	if err := s.opts.Cache.SaveSnapshot(ctx, snap, snapshotTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache bracket snapshot")
	}
}

func (s *Service) publishRatings(ctx context.Context) {
	if s.opts.Teams == nil {
		return
	}
	teams, err := s.opts.Teams.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list teams for rating metrics")
		return
	}
	for _, team := range teams {
		metrics.SetTeamPowerRank(team.Acronym, team.CurrentPR)
	}
}
