package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"matchbet/ingestion/internal/models"
)

var (
	// ErrTeamNotFound is returned when no team has the requested key
	ErrTeamNotFound = errors.New("team not found")

	// ErrMatchNotFound is returned when no match has the requested key
	ErrMatchNotFound = errors.New("match not found")

	// ErrAlreadyConcluded is returned by ConcludeMatch when another writer
	// concluded the match first
	ErrAlreadyConcluded = errors.New("match already concluded")
)

// Store is the record store the reconciler reads from and writes to.
// Implementations returned by Transactor.Transact lock every team and
// match they return until the transaction ends.
type Store interface {
	// FindTeam returns the team with the given acronym or ErrTeamNotFound
	FindTeam(ctx context.Context, acronym string) (*models.Team, error)

	// SaveTeam persists CurrentPR and PRHistory
	SaveTeam(ctx context.Context, team *models.Team) error

	// GetOrCreateMatch returns the match scheduled at defaults.ScheduledAt,
	// creating it from defaults when missing
	GetOrCreateMatch(ctx context.Context, defaults *models.Match) (*models.Match, bool, error)

	// SaveMatch persists the mutable match fields except the conclusion flag
	SaveMatch(ctx context.Context, match *models.Match) error

	// ConcludeMatch flips is_concluded to true if and only if it is still
	// false, returning ErrAlreadyConcluded otherwise
	ConcludeMatch(ctx context.Context, match *models.Match) error

	// GetOrCreateRelation returns the (team, match) relation, creating it
	// from defaults when missing
	GetOrCreateRelation(ctx context.Context, defaults *models.Relation) (*models.Relation, bool, error)

	// SaveRelation persists the outcome fields of a relation
	SaveRelation(ctx context.Context, rel *models.Relation) error
}

// Transactor runs fn against a Store whose writes commit together when fn
// returns nil and are discarded otherwise
type Transactor interface {
	Transact(ctx context.Context, fn func(Store) error) error
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// recordStore implements Store on top of one transaction
type recordStore struct {
	teams     *TeamRepository
	matches   *MatchRepository
	relations *RelationRepository
}

func newRecordStore(q querier) *recordStore {
	return &recordStore{
		teams:     &TeamRepository{q: q},
		matches:   &MatchRepository{q: q},
		relations: &RelationRepository{q: q},
	}
}

func (s *recordStore) FindTeam(ctx context.Context, acronym string) (*models.Team, error) {
	return s.teams.getByAcronym(ctx, acronym, true)
}

func (s *recordStore) SaveTeam(ctx context.Context, team *models.Team) error {
	return s.teams.UpdatePR(ctx, team)
}

func (s *recordStore) GetOrCreateMatch(ctx context.Context, defaults *models.Match) (*models.Match, bool, error) {
	return s.matches.GetOrCreate(ctx, defaults)
}

func (s *recordStore) SaveMatch(ctx context.Context, match *models.Match) error {
	return s.matches.Update(ctx, match)
}

func (s *recordStore) ConcludeMatch(ctx context.Context, match *models.Match) error {
	return s.matches.Conclude(ctx, match)
}

func (s *recordStore) GetOrCreateRelation(ctx context.Context, defaults *models.Relation) (*models.Relation, bool, error) {
	return s.relations.GetOrCreate(ctx, defaults)
}

func (s *recordStore) SaveRelation(ctx context.Context, rel *models.Relation) error {
	return s.relations.Update(ctx, rel)
}
