// Package scrape turns the flat cell tokens of a bracket table into
// normalized candidate matches.
package scrape

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Marker is the invisible prefix the bracket table puts on the cell that
// closes a match row (two WORD JOINER characters).
const Marker = "\u2060\u2060"

// Group partitions tokens into per-match groups. A token starting with
// Marker is kept in the current group and closes it. Tokens after the last
// marker never form a complete group and are dropped.
func Group(tokens []string) [][]string {
	var groups [][]string
	var current []string

	for _, tok := range tokens {
		current = append(current, tok)
		if strings.HasPrefix(tok, Marker) {
			groups = append(groups, current)
			current = nil
		}
	}

	if len(current) > 0 {
		log.Debug().
			Int("tokens", len(current)).
			Msg("Dropping trailing tokens without a closing marker")
	}

	return groups
}
