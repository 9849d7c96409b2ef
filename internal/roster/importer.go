package roster

import (
	"context"
	"fmt"

	"matchbet/ingestion/internal/metrics"
	"matchbet/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// TeamUpserter stores a batch of teams atomically, keyed by acronym
type TeamUpserter interface {
	UpsertTeams(ctx context.Context, teams []*models.Team) error
}

// Importer writes parsed roster entries to the record store
type Importer struct {
	store TeamUpserter
	maxPR float64
}

// NewImporter creates an importer that rejects base PRs above maxPR
func NewImporter(store TeamUpserter, maxPR float64) *Importer {
	return &Importer{store: store, maxPR: maxPR}
}

// Import upserts every entry in one transaction. Existing teams keep their
// current PR and history.
func (i *Importer) Import(ctx context.Context, entries []models.RosterEntry) (int, error) {
	teams := make([]*models.Team, 0, len(entries))
	for _, e := range entries {
		if e.BasePR > i.maxPR {
			return 0, fmt.Errorf("%w: %s base_pr %v exceeds PR scale %v", ErrInvalidRoster, e.Acronym, e.BasePR, i.maxPR)
		}
		teams = append(teams, e.ToTeam())
	}

	if err := i.store.UpsertTeams(ctx, teams); err != nil {
		return 0, fmt.Errorf("failed to import roster: %w", err)
	}

	metrics.RecordRosterImport(len(teams))
	for _, t := range teams {
		log.Debug().
			Str("acronym", t.Acronym).
			Str("name", t.Name).
			Float64("current_pr", t.CurrentPR).
			Int("seed", t.Seed).
			Str("origin", string(t.Origin)).
			Msg("Team imported")
	}
	log.Info().Int("count", len(teams)).Msg("Roster imported")

	return len(teams), nil
}
