// Package repotest provides an in-memory repository.Transactor for tests
// that need the record store semantics without a Postgres instance.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"matchbet/ingestion/internal/models"
	"matchbet/ingestion/internal/repository"
)

type relationKey struct {
	teamID  int
	matchID int
}

type state struct {
	nextID    int
	teams     map[string]models.Team
	matches   map[int64]models.Match
	relations map[relationKey]models.Relation
}

func (s *state) clone() *state {
	c := &state{
		nextID:    s.nextID,
		teams:     make(map[string]models.Team, len(s.teams)),
		matches:   make(map[int64]models.Match, len(s.matches)),
		relations: make(map[relationKey]models.Relation, len(s.relations)),
	}
	for k, v := range s.teams {
		c.teams[k] = cloneTeam(v)
	}
	for k, v := range s.matches {
		c.matches[k] = cloneMatch(v)
	}
	for k, v := range s.relations {
		c.relations[k] = v
	}
	return c
}

func cloneTeam(t models.Team) models.Team {
	t.PRHistory = append([]float64{}, t.PRHistory...)
	return t
}

func cloneMatch(m models.Match) models.Match {
	if m.CurrentOdds != nil {
		odds := *m.CurrentOdds
		m.CurrentOdds = &odds
	}
	m.OddsHistory = append([]models.OddsSnapshot{}, m.OddsHistory...)
	return m
}

// Store is an in-memory record store. Transactions run one at a time on a
// copy of the state that replaces it only when fn succeeds.
type Store struct {
	mu    sync.Mutex
	state *state

	// Writes counts committed Save*/Conclude calls
	Writes int

	// ConcludeConflict, when set and returning true, makes ConcludeMatch
	// behave as if another writer had concluded the match first
	ConcludeConflict func(m *models.Match) bool
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{state: (&state{}).clone()}
}

// AddTeam seeds a team the way a roster import would
func (s *Store) AddTeam(name, acronym string, pr float64) *models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.nextID++
	entry := models.RosterEntry{Name: name, Acronym: acronym, BasePR: pr, Seed: 1, Origin: models.OriginLCK}
	team := entry.ToTeam()
	team.ID = s.state.nextID
	s.state.teams[acronym] = cloneTeam(*team)
	return team
}

// Team returns a copy of the committed team
func (s *Store) Team(acronym string) (models.Team, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.state.teams[acronym]
	return cloneTeam(t), ok
}

// Match returns a copy of the committed match scheduled at at
func (s *Store) Match(at time.Time) (models.Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.state.matches[at.UnixNano()]
	return cloneMatch(m), ok
}

// Relations returns the committed relations of a match, team1 first
func (s *Store) Relations(matchID int) []models.Relation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rels []models.Relation
	for k, v := range s.state.relations {
		if k.matchID == matchID {
			rels = append(rels, v)
		}
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].IsTeam1 && !rels[j].IsTeam1 })
	return rels
}

// MatchCount returns the number of committed matches
func (s *Store) MatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.matches)
}

// ConcludeExternally marks a committed match concluded, as another worker would
func (s *Store) ConcludeExternally(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := at.UnixNano()
	m := s.state.matches[key]
	m.IsConcluded = true
	s.state.matches[key] = m
}

// Transact implements repository.Transactor
func (s *Store) Transact(ctx context.Context, fn func(repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txStore{parent: s, state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	s.Writes += tx.writes
	return nil
}

type txStore struct {
	parent *Store
	state  *state
	writes int
}

func (t *txStore) FindTeam(ctx context.Context, acronym string) (*models.Team, error) {
	team, ok := t.state.teams[acronym]
	if !ok {
		return nil, fmt.Errorf("%w: acronym=%s", repository.ErrTeamNotFound, acronym)
	}
	c := cloneTeam(team)
	return &c, nil
}

func (t *txStore) SaveTeam(ctx context.Context, team *models.Team) error {
	if _, ok := t.state.teams[team.Acronym]; !ok {
		return fmt.Errorf("%w: id=%d", repository.ErrTeamNotFound, team.ID)
	}
	t.state.teams[team.Acronym] = cloneTeam(*team)
	t.writes++
	return nil
}

func (t *txStore) GetOrCreateMatch(ctx context.Context, defaults *models.Match) (*models.Match, bool, error) {
	key := defaults.ScheduledAt.UnixNano()
	if m, ok := t.state.matches[key]; ok {
		c := cloneMatch(m)
		return &c, false, nil
	}

	t.state.nextID++
	m := cloneMatch(*defaults)
	m.ID = t.state.nextID
	m.IsConcluded = false
	t.state.matches[key] = m

	c := cloneMatch(m)
	return &c, true, nil
}

func (t *txStore) SaveMatch(ctx context.Context, match *models.Match) error {
	key := match.ScheduledAt.UnixNano()
	stored, ok := t.state.matches[key]
	if !ok {
		return fmt.Errorf("%w: id=%d", repository.ErrMatchNotFound, match.ID)
	}
	m := cloneMatch(*match)
	m.IsConcluded = stored.IsConcluded
	t.state.matches[key] = m
	t.writes++
	return nil
}

func (t *txStore) ConcludeMatch(ctx context.Context, match *models.Match) error {
	key := match.ScheduledAt.UnixNano()
	stored, ok := t.state.matches[key]
	if !ok {
		return fmt.Errorf("%w: id=%d", repository.ErrMatchNotFound, match.ID)
	}
	if stored.IsConcluded || (t.parent.ConcludeConflict != nil && t.parent.ConcludeConflict(match)) {
		return fmt.Errorf("%w: id=%d", repository.ErrAlreadyConcluded, match.ID)
	}
	stored.IsConcluded = true
	t.state.matches[key] = stored
	match.IsConcluded = true
	t.writes++
	return nil
}

func (t *txStore) GetOrCreateRelation(ctx context.Context, defaults *models.Relation) (*models.Relation, bool, error) {
	key := relationKey{teamID: defaults.TeamID, matchID: defaults.MatchID}
	if rel, ok := t.state.relations[key]; ok {
		return &rel, false, nil
	}

	t.state.nextID++
	rel := *defaults
	rel.ID = t.state.nextID
	t.state.relations[key] = rel
	return &rel, true, nil
}

func (t *txStore) SaveRelation(ctx context.Context, rel *models.Relation) error {
	key := relationKey{teamID: rel.TeamID, matchID: rel.MatchID}
	if _, ok := t.state.relations[key]; !ok {
		return fmt.Errorf("relation not found: id=%d", rel.ID)
	}
	t.state.relations[key] = *rel
	t.writes++
	return nil
}
