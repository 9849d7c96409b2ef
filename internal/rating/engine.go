// Package rating converts between power rank (PR) and ELO, applies the ELO
// update for a decided match and prices decimal odds from PR.
//
// PR is a bounded scale where lower is stronger. ELO is derived from PR as
// (1 - PR/Scale) * Baseline, so a PR of 0 maps to the baseline and a PR of
// Scale maps to 0.
package rating

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"matchbet/ingestion/internal/models"
)

// Config holds the rating constants
type Config struct {
	Baseline float64 // ELO of a PR 0 team
	KFactor  float64 // Maximum ELO swing per match
	Scale    float64 // Upper bound of the PR scale
}

// DefaultConfig returns the tournament defaults
func DefaultConfig() Config {
	return Config{
		Baseline: 1500,
		KFactor:  16,
		Scale:    18,
	}
}

// Validate checks the constants are usable
func (c Config) Validate() error {
	if c.Baseline <= 0 {
		return fmt.Errorf("baseline must be positive, got %v", c.Baseline)
	}
	if c.KFactor <= 0 {
		return fmt.Errorf("k-factor must be positive, got %v", c.KFactor)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("PR scale must be positive, got %v", c.Scale)
	}
	return nil
}

// Engine applies rating conversions and updates with a fixed Config
type Engine struct {
	cfg Config
}

// NewEngine creates a rating engine
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rating config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's constants
func (e *Engine) Config() Config {
	return e.cfg
}

// Adjustment is the PR change caused by one decided match
type Adjustment struct {
	OldPR1 float64
	OldPR2 float64
	NewPR1 float64
	NewPR2 float64
}

// Delta1 returns team1's PR change rounded to 4 places
func (a Adjustment) Delta1() float64 {
	return Round(a.NewPR1-a.OldPR1, 4)
}

// Delta2 returns team2's PR change rounded to 4 places
func (a Adjustment) Delta2() float64 {
	return Round(a.NewPR2-a.OldPR2, 4)
}

// PRToElo converts a power rank to ELO. The PR ratio is rounded to 4 places
// before scaling.
func (e *Engine) PRToElo(pr float64) float64 {
	return (1 - Round(pr/e.cfg.Scale, 4)) * e.cfg.Baseline
}

// EloToPR converts ELO back to a power rank rounded to 4 places
func (e *Engine) EloToPR(elo float64) float64 {
	return Round((1-elo/e.cfg.Baseline)*e.cfg.Scale, 4)
}

// Expected returns the expected score of a player rated a against one rated b
func Expected(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

// Update returns both ratings after a decided game
func (e *Engine) Update(elo1, elo2 float64, team1Won bool) (float64, float64) {
	actual1, actual2 := 0.0, 1.0
	if team1Won {
		actual1, actual2 = 1.0, 0.0
	}

	new1 := elo1 + e.cfg.KFactor*(actual1-Expected(elo1, elo2))
	new2 := elo2 + e.cfg.KFactor*(actual2-Expected(elo2, elo1))
	return new1, new2
}

// Adjust applies the result of a decided match to both teams: each team's
// pre-match PR is appended to its history and CurrentPR is replaced. Both
// teams are mutated together; callers persist them in one transaction.
// Calling Adjust twice for the same match counts the result twice.
func (e *Engine) Adjust(team1, team2 *models.Team, team1Won bool) Adjustment {
	elo1, elo2 := e.Update(e.PRToElo(team1.CurrentPR), e.PRToElo(team2.CurrentPR), team1Won)

	adj := Adjustment{
		NewPR1: e.EloToPR(elo1),
		NewPR2: e.EloToPR(elo2),
	}
	adj.OldPR1 = team1.RecordPR(adj.NewPR1)
	adj.OldPR2 = team2.RecordPR(adj.NewPR2)

	return adj
}

// Round rounds half away from zero to the given number of decimal places,
// taking v at its shortest decimal form
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
