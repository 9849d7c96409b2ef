package models

import (
	"time"
)

// Origin is the regional league a team qualified from
type Origin string

const (
	OriginLCK Origin = "lck"
	OriginLCS Origin = "lcs"
	OriginLEC Origin = "lec"
	OriginLPL Origin = "lpl"
	OriginVCS Origin = "vcs"
)

// Valid reports whether o is one of the known leagues
func (o Origin) Valid() bool {
	switch o {
	case OriginLCK, OriginLCS, OriginLEC, OriginLPL, OriginVCS:
		return true
	}
	return false
}

// Team represents a tournament team and its power rank
type Team struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	Acronym   string    `db:"acronym"`
	BasePR    float64   `db:"base_pr"`
	CurrentPR float64   `db:"current_pr"`
	PRHistory []float64 `db:"pr_history"` // Oldest first, one entry per concluded match
	Seed      int       `db:"seed"`
	Origin    Origin    `db:"origin"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// RosterEntry is one row of the initial roster file
type RosterEntry struct {
	Name    string
	Acronym string
	BasePR  float64
	Seed    int
	Origin  Origin
}

// ToTeam converts a roster entry to a fresh Team whose current PR starts at the base PR
func (re *RosterEntry) ToTeam() *Team {
	return &Team{
		Name:      re.Name,
		Acronym:   re.Acronym,
		BasePR:    re.BasePR,
		CurrentPR: re.BasePR,
		PRHistory: []float64{},
		Seed:      re.Seed,
		Origin:    re.Origin,
	}
}

// RecordPR appends the current PR to the history and replaces it with pr
func (t *Team) RecordPR(pr float64) (old float64) {
	old = t.CurrentPR
	t.PRHistory = append(t.PRHistory, old)
	t.CurrentPR = pr
	return old
}
