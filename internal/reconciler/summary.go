package reconciler

import (
	"errors"

	"matchbet/ingestion/internal/scrape"
)

// Summary counts what one ingestion run did. Created, Updated and
// Unchanged are the operator-facing counters; the rest count skipped groups.
type Summary struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`

	Malformed   int `json:"malformed"`
	UnknownTeam int `json:"unknown_team"`
	Ambiguous   int `json:"ambiguous"`
	Collision   int `json:"collision"`
	Failed      int `json:"failed"`
}

// Record counts a successful reconciliation. A match first seen already
// finished counts as both created and updated.
func (s *Summary) Record(r Result) {
	switch r {
	case Created:
		s.Created++
	case Updated:
		s.Updated++
	case CreatedAndUpdated:
		s.Created++
		s.Updated++
	default:
		s.Unchanged++
	}
}

// RecordSkip counts a group that was skipped and returns the reason label
func (s *Summary) RecordSkip(err error) string {
	reason := SkipReason(err)
	switch reason {
	case "malformed":
		s.Malformed++
	case "unknown_team":
		s.UnknownTeam++
	case "ambiguous":
		s.Ambiguous++
	case "collision":
		s.Collision++
	default:
		s.Failed++
	}
	return reason
}

// Skipped returns the number of groups that were not reconciled
func (s Summary) Skipped() int {
	return s.Malformed + s.UnknownTeam + s.Ambiguous + s.Collision + s.Failed
}

// SkipReason classifies a per-group error
func SkipReason(err error) string {
	switch {
	case errors.Is(err, scrape.ErrMalformedGroup):
		return "malformed"
	case errors.Is(err, ErrUnknownTeam):
		return "unknown_team"
	case errors.Is(err, ErrAmbiguousOutcome):
		return "ambiguous"
	case errors.Is(err, ErrMatchCollision):
		return "collision"
	}
	return "failed"
}
