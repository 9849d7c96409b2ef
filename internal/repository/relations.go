package repository

import (
	"context"
	"errors"
	"fmt"

	"matchbet/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

const relationColumns = `id, team_id, match_id, is_team1, is_winner, match_score, pr_delta, created_at, updated_at`

// RelationRepository handles team/match relation database operations
type RelationRepository struct {
	q querier
}

func scanRelation(row pgx.Row) (*models.Relation, error) {
	var rel models.Relation
	err := row.Scan(
		&rel.ID, &rel.TeamID, &rel.MatchID, &rel.IsTeam1,
		&rel.IsWinner, &rel.MatchScore, &rel.PRDelta, &rel.CreatedAt, &rel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// GetOrCreate returns the relation for (defaults.TeamID, defaults.MatchID),
// inserting defaults when there is none
func (r *RelationRepository) GetOrCreate(ctx context.Context, defaults *models.Relation) (*models.Relation, bool, error) {
	insert := `
		INSERT INTO team_match_relations (team_id, match_id, is_team1, is_winner, match_score, pr_delta)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (team_id, match_id) DO NOTHING
		RETURNING ` + relationColumns

	rel, err := scanRelation(r.q.QueryRow(
		ctx, insert,
		defaults.TeamID, defaults.MatchID, defaults.IsTeam1,
		defaults.IsWinner, defaults.MatchScore, defaults.PRDelta,
	))
	if err == nil {
		return rel, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create relation: %w", err)
	}

	query := `SELECT ` + relationColumns + ` FROM team_match_relations WHERE team_id = $1 AND match_id = $2`
	rel, err = scanRelation(r.q.QueryRow(ctx, query, defaults.TeamID, defaults.MatchID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to get relation: %w", err)
	}
	return rel, false, nil
}

// Update writes the outcome fields of a relation
func (r *RelationRepository) Update(ctx context.Context, rel *models.Relation) error {
	query := `
		UPDATE team_match_relations SET
			is_team1 = $1,
			is_winner = $2,
			match_score = $3,
			pr_delta = $4,
			updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`

	err := r.q.QueryRow(
		ctx, query,
		rel.IsTeam1, rel.IsWinner, rel.MatchScore, rel.PRDelta, rel.ID,
	).Scan(&rel.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("relation not found: id=%d", rel.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update relation: %w", err)
	}

	return nil
}

// ListByMatch retrieves both relations of a match, team1 first
func (r *RelationRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.Relation, error) {
	query := `SELECT ` + relationColumns + ` FROM team_match_relations WHERE match_id = $1 ORDER BY is_team1 DESC, id`

	rows, err := r.q.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}
	defer rows.Close()

	var rels []*models.Relation
	for rows.Next() {
		rel, err := scanRelation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		rels = append(rels, rel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relations: %w", err)
	}

	return rels, nil
}
