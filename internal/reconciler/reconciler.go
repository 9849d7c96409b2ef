// Package reconciler turns normalized scraped matches into record store
// writes. Each candidate is reconciled in one transaction so a match's
// rating effect is applied at most once, however often it is scraped.
package reconciler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"matchbet/ingestion/internal/models"
	"matchbet/ingestion/internal/rating"
	"matchbet/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownTeam is returned when a candidate names a team missing from the roster
	ErrUnknownTeam = errors.New("unknown team")

	// ErrAmbiguousOutcome is returned when a series is over on a tied score
	ErrAmbiguousOutcome = errors.New("ambiguous outcome")

	// ErrMatchCollision is returned when a pending match at the same start
	// time is already played by a different pair of teams
	ErrMatchCollision = errors.New("match collision")

	errConcludedElsewhere = errors.New("match concluded by another writer")
)

// Result is what reconciling one candidate did to the record store
type Result int

const (
	// Unchanged means the match was already concluded
	Unchanged Result = iota
	// Pending means the match exists and is still not concluded
	Pending
	// Created means the match was seen for the first time
	Created
	// Updated means the match concluded during this reconciliation
	Updated
	// CreatedAndUpdated means the match was first seen already finished
	CreatedAndUpdated
)

func (r Result) String() string {
	switch r {
	case Unchanged:
		return "unchanged"
	case Pending:
		return "pending"
	case Created:
		return "created"
	case Updated:
		return "updated"
	case CreatedAndUpdated:
		return "created_and_updated"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Options holds the reconciler's policy knobs
type Options struct {
	DefaultStage       models.Stage
	DefaultBestOf      models.BestOf
	RefreshPendingOdds bool
	Now                func() time.Time
}

// DefaultOptions returns swiss best-of-5 defaults without odds refresh
func DefaultOptions() Options {
	return Options{
		DefaultStage:  models.StageSwiss,
		DefaultBestOf: models.BO5,
		Now:           time.Now,
	}
}

// Reconciler applies candidate matches to the record store
type Reconciler struct {
	store  repository.Transactor
	engine *rating.Engine
	opts   Options
}

// New creates a Reconciler. Zero-valued options fall back to DefaultOptions.
func New(store repository.Transactor, engine *rating.Engine, opts Options) *Reconciler {
	defaults := DefaultOptions()
	if opts.DefaultStage == "" {
		opts.DefaultStage = defaults.DefaultStage
	}
	if opts.DefaultBestOf == 0 {
		opts.DefaultBestOf = defaults.DefaultBestOf
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}
	return &Reconciler{store: store, engine: engine, opts: opts}
}

// Reconcile brings the record store in line with one candidate match.
// Reprocessing a concluded match is a no-op.
func (r *Reconciler) Reconcile(ctx context.Context, c *models.CandidateMatch) (Result, error) {
	var result Result

	err := r.store.Transact(ctx, func(s repository.Store) error {
		var err error
		result, err = r.reconcile(ctx, s, c)
		return err
	})

	if errors.Is(err, errConcludedElsewhere) {
		log.Debug().
			Str("team1", c.Team1).
			Str("team2", c.Team2).
			Time("scheduled_at", c.ScheduledAt).
			Msg("Match concluded by another writer, skipping")
		return Unchanged, nil
	}
	if err != nil {
		return Unchanged, err
	}

	return result, nil
}

func (r *Reconciler) reconcile(ctx context.Context, s repository.Store, c *models.CandidateMatch) (Result, error) {
	team1, team2, err := resolveTeams(ctx, s, c.Team1, c.Team2)
	if err != nil {
		return Unchanged, err
	}

	odds := r.engine.Odds(team1, team2)
	match, created, err := s.GetOrCreateMatch(ctx, &models.Match{
		ScheduledAt: c.ScheduledAt,
		Stage:       r.opts.DefaultStage,
		BestOf:      r.opts.DefaultBestOf,
		CurrentOdds: &odds,
	})
	if err != nil {
		return Unchanged, fmt.Errorf("failed to get or create match: %w", err)
	}

	if match.IsConcluded {
		return Unchanged, nil
	}

	if !created && r.opts.RefreshPendingOdds {
		match.ReplaceOdds(r.opts.Now(), odds)
	}

	rel1, rel1Created, err := s.GetOrCreateRelation(ctx, &models.Relation{TeamID: team1.ID, MatchID: match.ID, IsTeam1: true})
	if err != nil {
		return Unchanged, fmt.Errorf("failed to get or create relation: %w", err)
	}
	rel2, rel2Created, err := s.GetOrCreateRelation(ctx, &models.Relation{TeamID: team2.ID, MatchID: match.ID, IsTeam1: false})
	if err != nil {
		return Unchanged, fmt.Errorf("failed to get or create relation: %w", err)
	}
	// An existing match already has both of its relations
	if !created && (rel1Created || rel2Created) {
		return Unchanged, fmt.Errorf("%w: %s vs %s at %s",
			ErrMatchCollision, team1.Acronym, team2.Acronym, match.ScheduledAt.UTC().Format(time.RFC3339))
	}

	concluded := false
	if score := c.Score; score != nil {
		match.Result = sql.NullString{String: leaderFirst(*score), Valid: true}
		rel1.MatchScore = sql.NullString{String: score.String(), Valid: true}
		rel2.MatchScore = sql.NullString{String: score.Reversed().String(), Valid: true}

		if match.BestOf.Decided(score.Team1, score.Team2) {
			if score.Team1 == score.Team2 {
				return Unchanged, fmt.Errorf("%w: %s %s %s in a best-of-%d",
					ErrAmbiguousOutcome, team1.Acronym, score, team2.Acronym, match.BestOf)
			}
			if err := r.conclude(ctx, s, match, team1, team2, rel1, rel2, score.Team1 > score.Team2); err != nil {
				return Unchanged, err
			}
			concluded = true
		}
	}

	if err := s.SaveMatch(ctx, match); err != nil {
		return Unchanged, fmt.Errorf("failed to save match: %w", err)
	}
	for _, rel := range []*models.Relation{rel1, rel2} {
		if err := s.SaveRelation(ctx, rel); err != nil {
			return Unchanged, fmt.Errorf("failed to save relation: %w", err)
		}
	}

	switch {
	case created && concluded:
		return CreatedAndUpdated, nil
	case created:
		return Created, nil
	case concluded:
		return Updated, nil
	}
	return Pending, nil
}

func (r *Reconciler) conclude(
	ctx context.Context,
	s repository.Store,
	match *models.Match,
	team1, team2 *models.Team,
	rel1, rel2 *models.Relation,
	team1Won bool,
) error {
	if err := s.ConcludeMatch(ctx, match); err != nil {
		if errors.Is(err, repository.ErrAlreadyConcluded) {
			return errConcludedElsewhere
		}
		return fmt.Errorf("failed to conclude match: %w", err)
	}

	adj := r.engine.Adjust(team1, team2, team1Won)
	for _, team := range []*models.Team{team1, team2} {
		if err := s.SaveTeam(ctx, team); err != nil {
			return fmt.Errorf("failed to save team %s: %w", team.Acronym, err)
		}
	}

	winner := team2
	if team1Won {
		winner = team1
	}
	match.WinnerID = sql.NullInt32{Int32: int32(winner.ID), Valid: true}

	rel1.IsWinner = sql.NullBool{Bool: team1Won, Valid: true}
	rel2.IsWinner = sql.NullBool{Bool: !team1Won, Valid: true}
	rel1.PRDelta = sql.NullFloat64{Float64: adj.Delta1(), Valid: true}
	rel2.PRDelta = sql.NullFloat64{Float64: adj.Delta2(), Valid: true}

	log.Info().
		Str("winner", winner.Acronym).
		Str("team1", team1.Acronym).
		Str("team2", team2.Acronym).
		Str("result", match.Result.String).
		Float64("team1_pr", adj.NewPR1).
		Float64("team2_pr", adj.NewPR2).
		Float64("team1_delta", adj.Delta1()).
		Float64("team2_delta", adj.Delta2()).
		Msg("Match concluded, ratings adjusted")

	return nil
}

// resolveTeams locks both teams in acronym order so that two transactions
// touching the same pair never wait on each other in opposite order
func resolveTeams(ctx context.Context, s repository.Store, acronym1, acronym2 string) (*models.Team, *models.Team, error) {
	order := []string{acronym1, acronym2}
	sort.Strings(order)

	found := make(map[string]*models.Team, 2)
	for _, acronym := range order {
		team, err := s.FindTeam(ctx, acronym)
		if errors.Is(err, repository.ErrTeamNotFound) {
			return nil, nil, fmt.Errorf("%w %q: %w", ErrUnknownTeam, acronym, err)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find team %s: %w", acronym, err)
		}
		found[acronym] = team
	}

	return found[acronym1], found[acronym2], nil
}

// leaderFirst formats a score with the higher side first, e.g. "3-1"
func leaderFirst(s models.Score) string {
	if s.Team2 > s.Team1 {
		return s.Reversed().String()
	}
	return s.String()
}
