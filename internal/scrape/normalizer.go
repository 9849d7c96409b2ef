package scrape

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"matchbet/ingestion/internal/models"
)

// Undetermined is the placeholder the bracket shows for a slot whose team
// is not known yet
const Undetermined = "TBD"

const (
	upcomingGroupLen = 3 // team1, datetime, team2
	scoredGroupLen   = 5 // team1, score1, score2, datetime, team2
)

// Normalizer interprets token groups as candidate matches
type Normalizer struct {
	location *time.Location
}

// NewNormalizer creates a normalizer that expresses match times in loc
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{location: loc}
}

// Normalize converts one group into a candidate match. Groups of any length
// other than 3 or 5 and groups with an undetermined participant are
// rejected with an error wrapping ErrMalformedGroup.
func (n *Normalizer) Normalize(group []string) (*models.CandidateMatch, error) {
	if len(group) != upcomingGroupLen && len(group) != scoredGroupLen {
		return nil, fmt.Errorf("%w: expected %d or %d tokens, got %d",
			ErrMalformedGroup, upcomingGroupLen, scoredGroupLen, len(group))
	}

	team1 := cleanTeam(group[0])
	team2 := cleanTeam(group[len(group)-1])
	if team1 == Undetermined || team2 == Undetermined {
		return nil, fmt.Errorf("%w: %s vs %s", ErrUndetermined, team1, team2)
	}
	if team1 == "" || team2 == "" {
		return nil, fmt.Errorf("%w: empty team identifier", ErrMalformedGroup)
	}
	if team1 == team2 {
		return nil, fmt.Errorf("%w: team %s listed on both sides", ErrMalformedGroup, team1)
	}

	candidate := &models.CandidateMatch{
		Team1: team1,
		Team2: team2,
	}

	rawDate := group[1]
	if len(group) == scoredGroupLen {
		score1, err := parseScore(group[1])
		if err != nil {
			return nil, err
		}
		score2, err := parseScore(group[2])
		if err != nil {
			return nil, err
		}
		candidate.Score = &models.Score{Team1: score1, Team2: score2}
		rawDate = group[3]
	}

	scheduledAt, err := ParseDateTime(rawDate, n.location)
	if err != nil {
		return nil, err
	}
	candidate.ScheduledAt = scheduledAt

	return candidate, nil
}

func cleanTeam(tok string) string {
	return strings.TrimSpace(strings.ReplaceAll(tok, Marker, ""))
}

func parseScore(tok string) (int, error) {
	score, err := strconv.Atoi(strings.TrimSpace(tok))
	if err != nil || score < 0 {
		return 0, fmt.Errorf("%w: bad score %q", ErrMalformedGroup, tok)
	}
	return score, nil
}
