package repository

import (
	"context"
	"errors"
	"fmt"

	"matchbet/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const teamColumns = `id, name, acronym, base_pr, current_pr, pr_history, seed, origin, created_at, updated_at`

// TeamRepository handles team database operations
type TeamRepository struct {
	q querier
}

func scanTeam(row pgx.Row) (*models.Team, error) {
	var team models.Team
	err := row.Scan(
		&team.ID, &team.Name, &team.Acronym, &team.BasePR, &team.CurrentPR,
		&team.PRHistory, &team.Seed, &team.Origin, &team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if team.PRHistory == nil {
		team.PRHistory = []float64{}
	}
	return &team, nil
}

func historyOrEmpty(h []float64) []float64 {
	if h == nil {
		return []float64{}
	}
	return h
}

// Create inserts a new team
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (name, acronym, base_pr, current_pr, pr_history, seed, origin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(
		ctx, query,
		team.Name, team.Acronym, team.BasePR, team.CurrentPR,
		historyOrEmpty(team.PRHistory), team.Seed, team.Origin,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}

	log.Debug().
		Int("id", team.ID).
		Str("acronym", team.Acronym).
		Float64("base_pr", team.BasePR).
		Msg("Team created")

	return nil
}

// Upsert inserts a team or refreshes its roster attributes by acronym.
// Ratings of an existing team are left alone so a roster reload never
// erases PR history.
func (r *TeamRepository) Upsert(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (name, acronym, base_pr, current_pr, pr_history, seed, origin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (acronym) DO UPDATE SET
			name = EXCLUDED.name,
			seed = EXCLUDED.seed,
			origin = EXCLUDED.origin,
			updated_at = NOW()
		RETURNING ` + teamColumns

	row := r.q.QueryRow(
		ctx, query,
		team.Name, team.Acronym, team.BasePR, team.CurrentPR,
		historyOrEmpty(team.PRHistory), team.Seed, team.Origin,
	)
	saved, err := scanTeam(row)
	if err != nil {
		return fmt.Errorf("failed to upsert team: %w", err)
	}

	*team = *saved
	return nil
}

// GetByAcronym retrieves a team by its acronym
func (r *TeamRepository) GetByAcronym(ctx context.Context, acronym string) (*models.Team, error) {
	return r.getByAcronym(ctx, acronym, false)
}

func (r *TeamRepository) getByAcronym(ctx context.Context, acronym string, forUpdate bool) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE acronym = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	team, err := scanTeam(r.q.QueryRow(ctx, query, acronym))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: acronym=%s", ErrTeamNotFound, acronym)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return team, nil
}

// List retrieves all teams, strongest first
func (r *TeamRepository) List(ctx context.Context) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY current_pr, acronym`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}

	return teams, nil
}

// UpdatePR writes a team's current PR and history
func (r *TeamRepository) UpdatePR(ctx context.Context, team *models.Team) error {
	query := `
		UPDATE teams SET
			current_pr = $1,
			pr_history = $2,
			updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query, team.CurrentPR, historyOrEmpty(team.PRHistory), team.ID).Scan(&team.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: id=%d", ErrTeamNotFound, team.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}

	log.Debug().
		Str("acronym", team.Acronym).
		Float64("current_pr", team.CurrentPR).
		Int("history", len(team.PRHistory)).
		Msg("Team PR updated")

	return nil
}

// Count returns the total number of teams
func (r *TeamRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM teams`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return count, nil
}
