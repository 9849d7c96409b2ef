// Package roster loads the initial team roster from CSV into the record
// store. Each team starts with its current PR equal to its base PR.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"matchbet/ingestion/internal/models"
)

// Columns lists the header fields a roster file must carry, in any order
var Columns = []string{"name", "acronym", "base_pr", "seed", "origin"}

// ErrInvalidRoster is returned for unreadable headers and rows
var ErrInvalidRoster = errors.New("invalid roster")

const (
	minSeed = 1
	maxSeed = 4
)

// Parse reads a roster CSV. Any invalid row fails the whole file so a
// partial roster is never imported.
func Parse(r io.Reader) ([]models.RosterEntry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidRoster)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrInvalidRoster, err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidRoster, col)
		}
	}

	var entries []models.RosterEntry
	seen := make(map[string]int)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
		}
		line, _ := reader.FieldPos(0)

		entry, err := parseRow(record, index)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRoster, line, err)
		}
		if prev, dup := seen[entry.Acronym]; dup {
			return nil, fmt.Errorf("%w: line %d: acronym %s already used on line %d", ErrInvalidRoster, line, entry.Acronym, prev)
		}
		seen[entry.Acronym] = line
		entries = append(entries, entry)
	}

	return entries, nil
}

func parseRow(record []string, index map[string]int) (models.RosterEntry, error) {
	field := func(col string) string {
		return strings.TrimSpace(record[index[col]])
	}

	entry := models.RosterEntry{
		Name:    field("name"),
		Acronym: field("acronym"),
		Origin:  models.Origin(strings.ToLower(field("origin"))),
	}
	if entry.Name == "" {
		return entry, errors.New("name is empty")
	}
	if entry.Acronym == "" {
		return entry, errors.New("acronym is empty")
	}
	if !entry.Origin.Valid() {
		return entry, fmt.Errorf("unknown origin %q", entry.Origin)
	}

	pr, err := strconv.ParseFloat(field("base_pr"), 64)
	if err != nil || math.IsNaN(pr) || math.IsInf(pr, 0) || pr < 0 {
		return entry, fmt.Errorf("base_pr %q is not a non-negative number", field("base_pr"))
	}
	entry.BasePR = pr

	// Seeds arrive as "1", "1.0" or " 1.0"
	seed, err := strconv.ParseFloat(field("seed"), 64)
	if err != nil || seed != math.Trunc(seed) || seed < minSeed || seed > maxSeed {
		return entry, fmt.Errorf("seed %q is not an integer between %d and %d", field("seed"), minSeed, maxSeed)
	}
	entry.Seed = int(seed)

	return entry, nil
}
