package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Stage is the tournament phase a match belongs to
type Stage string

const (
	StageSwiss    Stage = "swiss"
	StageKnockout Stage = "knockout"
	StageFinal    Stage = "final"
)

// ParseStage validates a stage name
func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageSwiss, StageKnockout, StageFinal:
		return st, nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// BestOf is the series length. A series is decided by the first team to
// win a majority of BestOf games.
type BestOf int

const (
	BO1 BestOf = 1
	BO3 BestOf = 3
	BO5 BestOf = 5
)

// ParseBestOf validates a series length
func ParseBestOf(n int) (BestOf, error) {
	switch bo := BestOf(n); bo {
	case BO1, BO3, BO5:
		return bo, nil
	}
	return 0, fmt.Errorf("unsupported best-of %d", n)
}

// Decided reports whether a series with the given scores is over
func (bo BestOf) Decided(score1, score2 int) bool {
	n := int(bo)
	return 2*score1 >= n || 2*score2 >= n || score1+score2 == n
}

// Match represents a scheduled or concluded series between two teams.
// ScheduledAt is the unique key: two matches never start at the same instant.
type Match struct {
	ID          int            `db:"id"`
	ScheduledAt time.Time      `db:"scheduled_at"`
	Stage       Stage          `db:"stage"`
	BestOf      BestOf         `db:"best_of"`
	Result      sql.NullString `db:"result"`
	WinnerID    sql.NullInt32  `db:"winner_id"`
	IsConcluded bool           `db:"is_concluded"`
	CurrentOdds *Odds          `db:"current_odds"`
	OddsHistory []OddsSnapshot `db:"odds_history"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// ArchiveOdds moves the current odds into the history
func (m *Match) ArchiveOdds(now time.Time) {
	if m.CurrentOdds == nil {
		return
	}
	m.OddsHistory = append(m.OddsHistory, OddsSnapshot{
		ArchivedAt: now,
		Odds:       *m.CurrentOdds,
	})
	m.CurrentOdds = nil
}

// ReplaceOdds archives the current odds and installs a new pair
func (m *Match) ReplaceOdds(now time.Time, odds Odds) {
	m.ArchiveOdds(now)
	m.CurrentOdds = &odds
}

// Relation links one team to one match
type Relation struct {
	ID         int             `db:"id"`
	TeamID     int             `db:"team_id"`
	MatchID    int             `db:"match_id"`
	IsTeam1    bool            `db:"is_team1"`
	IsWinner   sql.NullBool    `db:"is_winner"`
	MatchScore sql.NullString  `db:"match_score"`
	PRDelta    sql.NullFloat64 `db:"pr_delta"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// Score is the series score of a scraped match, team1 first
type Score struct {
	Team1 int
	Team2 int
}

// GamesPlayed returns the number of games played so far
func (s Score) GamesPlayed() int {
	return s.Team1 + s.Team2
}

// String formats the score from team1's point of view, e.g. "2-1"
func (s Score) String() string {
	return fmt.Sprintf("%d-%d", s.Team1, s.Team2)
}

// Reversed returns the score from team2's point of view
func (s Score) Reversed() Score {
	return Score{Team1: s.Team2, Team2: s.Team1}
}

// CandidateMatch is a normalized scraped match before reconciliation
type CandidateMatch struct {
	Team1       string
	Team2       string
	ScheduledAt time.Time
	Score       *Score // nil for upcoming matches
}
