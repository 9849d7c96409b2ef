package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"matchbet/ingestion/internal/models"
)

func TestOdds(t *testing.T) {
	e := newTestEngine(t)

	odds := e.Odds(&models.Team{CurrentPR: 5.0}, &models.Team{CurrentPR: 8.0})

	assert.Equal(t, models.Odds{Team1: 1.77, Team2: 2.3}, odds)
}

func TestOdds_EqualPR(t *testing.T) {
	e := newTestEngine(t)

	for _, pr := range []float64{0, 3.3, 9, 17.9} {
		odds := e.Odds(&models.Team{CurrentPR: pr}, &models.Team{CurrentPR: pr})
		assert.Equal(t, odds.Team1, odds.Team2, "pr=%v", pr)
		assert.Equal(t, 2.0, odds.Team1)
	}
}

func TestOdds_StrongerTeamIsShorter(t *testing.T) {
	e := newTestEngine(t)

	pairs := [][2]float64{{1, 2}, {0.5, 17}, {8.9, 9.1}, {12, 15}}
	for _, p := range pairs {
		strong := &models.Team{CurrentPR: p[0]}
		weak := &models.Team{CurrentPR: p[1]}

		odds := e.Odds(strong, weak)
		assert.Less(t, odds.Team1, odds.Team2, "pr %v vs %v", p[0], p[1])

		// Swapping the arguments swaps the pair
		swapped := e.Odds(weak, strong)
		assert.Equal(t, odds.Team1, swapped.Team2)
		assert.Equal(t, odds.Team2, swapped.Team1)
	}
}

func TestWinProbabilities(t *testing.T) {
	e := newTestEngine(t)

	p1, p2 := e.WinProbabilities(&models.Team{CurrentPR: 2}, &models.Team{CurrentPR: 11})
	assert.InDelta(t, 1.0, p1+p2, 1e-12)
	assert.Greater(t, p1, p2)

	// A team at the bottom of the scale is still priceable
	p1, p2 = e.WinProbabilities(&models.Team{CurrentPR: 18}, &models.Team{CurrentPR: 18})
	assert.Equal(t, 0.5, p1)
	assert.Equal(t, 0.5, p2)

	odds := e.Odds(&models.Team{CurrentPR: 18}, &models.Team{CurrentPR: 0})
	assert.Greater(t, odds.Team1, 1000.0)
	assert.Equal(t, 1.0, odds.Team2)
}
