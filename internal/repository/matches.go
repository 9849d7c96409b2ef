package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchbet/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const matchColumns = `id, scheduled_at, stage, best_of, result, winner_id, is_concluded,
	current_odds, odds_history, created_at, updated_at`

// MatchRepository handles match database operations
type MatchRepository struct {
	q querier
}

func scanMatch(row pgx.Row) (*models.Match, error) {
	var match models.Match
	err := row.Scan(
		&match.ID, &match.ScheduledAt, &match.Stage, &match.BestOf,
		&match.Result, &match.WinnerID, &match.IsConcluded,
		&match.CurrentOdds, &match.OddsHistory, &match.CreatedAt, &match.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func oddsHistoryOrEmpty(h []models.OddsSnapshot) []models.OddsSnapshot {
	if h == nil {
		return []models.OddsSnapshot{}
	}
	return h
}

// GetOrCreate returns the match scheduled at defaults.ScheduledAt, inserting
// defaults when there is none. The returned row is locked when the
// repository runs inside a transaction.
func (r *MatchRepository) GetOrCreate(ctx context.Context, defaults *models.Match) (*models.Match, bool, error) {
	insert := `
		INSERT INTO matches (scheduled_at, stage, best_of, current_odds, odds_history)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (scheduled_at) DO NOTHING
		RETURNING ` + matchColumns

	match, err := scanMatch(r.q.QueryRow(
		ctx, insert,
		defaults.ScheduledAt, defaults.Stage, defaults.BestOf,
		defaults.CurrentOdds, oddsHistoryOrEmpty(defaults.OddsHistory),
	))
	if err == nil {
		log.Debug().
			Int("id", match.ID).
			Time("scheduled_at", match.ScheduledAt).
			Msg("Match created")
		return match, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create match: %w", err)
	}

	// Conflict: the match already exists
	match, err = r.getByScheduledAt(ctx, defaults.ScheduledAt, true)
	if err != nil {
		return nil, false, err
	}
	return match, false, nil
}

// GetByScheduledAt retrieves a match by its start time
func (r *MatchRepository) GetByScheduledAt(ctx context.Context, at time.Time) (*models.Match, error) {
	return r.getByScheduledAt(ctx, at, false)
}

func (r *MatchRepository) getByScheduledAt(ctx context.Context, at time.Time, forUpdate bool) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE scheduled_at = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	match, err := scanMatch(r.q.QueryRow(ctx, query, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: scheduled_at=%s", ErrMatchNotFound, at.Format(time.RFC3339))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	return match, nil
}

// Update writes the mutable match fields. The conclusion flag is only ever
// set through Conclude.
func (r *MatchRepository) Update(ctx context.Context, match *models.Match) error {
	query := `
		UPDATE matches SET
			stage = $1,
			best_of = $2,
			result = $3,
			winner_id = $4,
			current_odds = $5,
			odds_history = $6,
			updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	err := r.q.QueryRow(
		ctx, query,
		match.Stage, match.BestOf, match.Result, match.WinnerID,
		match.CurrentOdds, oddsHistoryOrEmpty(match.OddsHistory), match.ID,
	).Scan(&match.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: id=%d", ErrMatchNotFound, match.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}

	return nil
}

// Conclude sets is_concluded on a match that is not concluded yet. It
// returns ErrAlreadyConcluded when another writer got there first.
func (r *MatchRepository) Conclude(ctx context.Context, match *models.Match) error {
	query := `
		UPDATE matches SET
			is_concluded = TRUE,
			updated_at = NOW()
		WHERE id = $1 AND NOT is_concluded
	`

	result, err := r.q.Exec(ctx, query, match.ID)
	if err != nil {
		return fmt.Errorf("failed to conclude match: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: id=%d", ErrAlreadyConcluded, match.ID)
	}

	match.IsConcluded = true
	log.Debug().Int("id", match.ID).Msg("Match concluded")
	return nil
}

// List retrieves all matches in schedule order
func (r *MatchRepository) List(ctx context.Context) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches ORDER BY scheduled_at`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	return matches, nil
}

// Delete deletes a match together with its relations
func (r *MatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.q.Exec(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: id=%d", ErrMatchNotFound, id)
	}

	log.Debug().Int("id", id).Msg("Match deleted")
	return nil
}

// CountByConclusion returns the number of pending and concluded matches
func (r *MatchRepository) CountByConclusion(ctx context.Context) (pending, concluded int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE NOT is_concluded),
			COUNT(*) FILTER (WHERE is_concluded)
		FROM matches
	`

	if err := r.q.QueryRow(ctx, query).Scan(&pending, &concluded); err != nil {
		return 0, 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return pending, concluded, nil
}
