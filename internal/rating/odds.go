package rating

import (
	"math"

	"matchbet/ingestion/internal/models"
)

// minStrength keeps a team at or past the bottom of the PR scale priceable
const minStrength = 0.0001

// WinProbabilities returns each team's win probability from their current
// PR, normalizing the inverse strengths so the pair sums to 1
func (e *Engine) WinProbabilities(team1, team2 *models.Team) (float64, float64) {
	strength1 := math.Max(1-Round(team1.CurrentPR/e.cfg.Scale, 4), minStrength)
	strength2 := math.Max(1-Round(team2.CurrentPR/e.cfg.Scale, 4), minStrength)

	total := strength1 + strength2
	return strength1 / total, strength2 / total
}

// Odds prices decimal odds for both teams, aligned with the order of the
// arguments and rounded to 2 places
func (e *Engine) Odds(team1, team2 *models.Team) models.Odds {
	p1, p2 := e.WinProbabilities(team1, team2)
	return models.Odds{
		Team1: Round(1/p1, 2),
		Team2: Round(1/p2, 2),
	}
}
