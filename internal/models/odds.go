package models

import (
	"time"
)

// Odds is a pair of decimal odds aligned with a match's team1 and team2
type Odds struct {
	Team1 float64 `json:"team1"`
	Team2 float64 `json:"team2"`
}

// OddsSnapshot is an archived odds pair
type OddsSnapshot struct {
	ArchivedAt time.Time `json:"archived_at"`
	Odds       Odds      `json:"odds"`
}
