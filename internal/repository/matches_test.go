//go:build integration

package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"matchbet/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchRepository_GetOrCreate(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	at := time.Date(2023, time.November, 2, 8, 0, 0, 0, time.UTC)
	defaults := &models.Match{
		ScheduledAt: at,
		Stage:       models.StageKnockout,
		BestOf:      models.BO5,
		CurrentOdds: &models.Odds{Team1: 1.77, Team2: 2.3},
	}

	created, isNew, err := db.Matches.GetOrCreate(ctx, defaults)
	require.NoError(t, err, "Should create match")
	assert.True(t, isNew)
	assert.False(t, created.IsConcluded)
	require.NotNil(t, created.CurrentOdds)
	assert.Equal(t, 1.77, created.CurrentOdds.Team1)
	assert.Empty(t, created.OddsHistory)

	// Same start time returns the existing row untouched
	again, isNew, err := db.Matches.GetOrCreate(ctx, &models.Match{ScheduledAt: at, Stage: models.StageSwiss, BestOf: models.BO1})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, models.StageKnockout, again.Stage)
	assert.Equal(t, models.BO5, again.BestOf)
}

func TestMatchRepository_UpdateAndConclude(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	team := (&models.RosterEntry{Name: "T1", Acronym: "T1", BasePR: 5, Seed: 4, Origin: models.OriginLCK}).ToTeam()
	require.NoError(t, db.Teams.Create(ctx, team))

	at := time.Date(2023, time.November, 19, 8, 0, 0, 0, time.UTC)
	match, _, err := db.Matches.GetOrCreate(ctx, &models.Match{
		ScheduledAt: at,
		Stage:       models.StageFinal,
		BestOf:      models.BO5,
		CurrentOdds: &models.Odds{Team1: 1.5, Team2: 2.5},
	})
	require.NoError(t, err)

	match.ReplaceOdds(time.Now(), models.Odds{Team1: 1.6, Team2: 2.4})
	match.Result = sql.NullString{String: "3-0", Valid: true}
	match.WinnerID = sql.NullInt32{Int32: int32(team.ID), Valid: true}
	require.NoError(t, db.Matches.Update(ctx, match), "Should update match")

	require.NoError(t, db.Matches.Conclude(ctx, match), "Should conclude match")
	assert.True(t, match.IsConcluded)

	err = db.Matches.Conclude(ctx, match)
	assert.True(t, errors.Is(err, ErrAlreadyConcluded), "Second conclusion should be rejected")

	stored, err := db.Matches.GetByScheduledAt(ctx, at)
	require.NoError(t, err)
	assert.True(t, stored.IsConcluded)
	assert.Equal(t, "3-0", stored.Result.String)
	assert.Equal(t, int32(team.ID), stored.WinnerID.Int32)
	require.Len(t, stored.OddsHistory, 1)
	assert.Equal(t, 1.5, stored.OddsHistory[0].Odds.Team1)
	assert.Equal(t, 1.6, stored.CurrentOdds.Team1)

	pending, concluded, err := db.Matches.CountByConclusion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
	assert.Equal(t, 1, concluded)
}

func TestMatchRepository_GetNotFound(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	_, err := db.Matches.GetByScheduledAt(ctx, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, ErrMatchNotFound))
}

func TestRelationRepository_GetOrCreate(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	t1 := (&models.RosterEntry{Name: "T1", Acronym: "T1", BasePR: 5, Seed: 4, Origin: models.OriginLCK}).ToTeam()
	blg := (&models.RosterEntry{Name: "Bilibili Gaming", Acronym: "BLG", BasePR: 8, Seed: 3, Origin: models.OriginLPL}).ToTeam()
	require.NoError(t, db.Teams.Create(ctx, t1))
	require.NoError(t, db.Teams.Create(ctx, blg))

	match, _, err := db.Matches.GetOrCreate(ctx, &models.Match{
		ScheduledAt: time.Date(2023, time.November, 12, 8, 0, 0, 0, time.UTC),
		Stage:       models.StageKnockout,
		BestOf:      models.BO5,
	})
	require.NoError(t, err)

	for _, rel := range []*models.Relation{
		{TeamID: blg.ID, MatchID: match.ID, IsTeam1: false},
		{TeamID: t1.ID, MatchID: match.ID, IsTeam1: true},
	} {
		_, isNew, err := db.Relations.GetOrCreate(ctx, rel)
		require.NoError(t, err)
		assert.True(t, isNew)
	}

	existing, isNew, err := db.Relations.GetOrCreate(ctx, &models.Relation{TeamID: t1.ID, MatchID: match.ID, IsTeam1: true})
	require.NoError(t, err)
	assert.False(t, isNew)

	existing.IsWinner = sql.NullBool{Bool: true, Valid: true}
	existing.MatchScore = sql.NullString{String: "3-0", Valid: true}
	existing.PRDelta = sql.NullFloat64{Float64: -0.0364, Valid: true}
	require.NoError(t, db.Relations.Update(ctx, existing))

	rels, err := db.Relations.ListByMatch(ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, t1.ID, rels[0].TeamID, "Team1 relation should come first")
	assert.True(t, rels[0].IsWinner.Bool)
	assert.Equal(t, -0.0364, rels[0].PRDelta.Float64)
	assert.False(t, rels[1].IsWinner.Valid)
}

func TestMatchRepository_DeleteCascadesRelations(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	t1 := (&models.RosterEntry{Name: "T1", Acronym: "T1", BasePR: 5, Seed: 4, Origin: models.OriginLCK}).ToTeam()
	blg := (&models.RosterEntry{Name: "Bilibili Gaming", Acronym: "BLG", BasePR: 8, Seed: 3, Origin: models.OriginLPL}).ToTeam()
	require.NoError(t, db.Teams.Create(ctx, t1))
	require.NoError(t, db.Teams.Create(ctx, blg))

	match, _, err := db.Matches.GetOrCreate(ctx, &models.Match{
		ScheduledAt: time.Date(2023, time.November, 5, 8, 0, 0, 0, time.UTC),
		Stage:       models.StageSwiss,
		BestOf:      models.BO1,
	})
	require.NoError(t, err)
	for _, rel := range []*models.Relation{
		{TeamID: t1.ID, MatchID: match.ID, IsTeam1: true},
		{TeamID: blg.ID, MatchID: match.ID, IsTeam1: false},
	} {
		_, _, err := db.Relations.GetOrCreate(ctx, rel)
		require.NoError(t, err)
	}

	require.NoError(t, db.Matches.Delete(ctx, match.ID), "Should delete match")

	rels, err := db.Relations.ListByMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Empty(t, rels, "Relations should be deleted with their match")

	_, err = db.Matches.GetByScheduledAt(ctx, match.ScheduledAt)
	assert.True(t, errors.Is(err, ErrMatchNotFound))

	// Teams survive
	count, err := db.Teams.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	err = db.Matches.Delete(ctx, match.ID)
	assert.True(t, errors.Is(err, ErrMatchNotFound))
}

func TestDatabase_TransactRollsBack(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	team := (&models.RosterEntry{Name: "T1", Acronym: "T1", BasePR: 5, Seed: 4, Origin: models.OriginLCK}).ToTeam()
	require.NoError(t, db.Teams.Create(ctx, team))

	boom := errors.New("boom")
	err := db.Transact(ctx, func(s Store) error {
		locked, err := s.FindTeam(ctx, "T1")
		if err != nil {
			return err
		}
		locked.RecordPR(4)
		if err := s.SaveTeam(ctx, locked); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := db.Teams.GetByAcronym(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, stored.CurrentPR, "Rolled back write must not be visible")
	assert.Empty(t, stored.PRHistory)
}
