package scrape

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// ParseDateTime parses a bracket timestamp such as
// "10 October 2023 17:00:00 +02:00, Tuesday" into an instant expressed in
// target. The stated offset is removed first so the instant is exact.
func ParseDateTime(raw string, target *time.Location) (time.Time, error) {
	fields := strings.Fields(strings.ReplaceAll(raw, ",", " "))
	if len(fields) < 5 {
		return time.Time{}, fmt.Errorf("%w: datetime %q has too few fields", ErrMalformedGroup, raw)
	}

	day, err := strconv.Atoi(fields[0])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: bad day in %q", ErrMalformedGroup, raw)
	}

	month, ok := months[strings.ToLower(fields[1])]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: bad month %q", ErrMalformedGroup, fields[1])
	}

	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad year in %q", ErrMalformedGroup, raw)
	}

	clock, err := time.Parse("15:04:05", fields[3])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad time of day in %q", ErrMalformedGroup, raw)
	}

	offset, err := parseOffset(fields[4])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedGroup, err)
	}

	wall := time.Date(year, month, day, clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
	if wall.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %d %s %d is not a date", ErrMalformedGroup, day, month, year)
	}

	return wall.Add(-offset).In(target), nil
}

// parseOffset reads "+2", "+02", "-05:30", "+0530", "UTC+8" or "GMT-3"
func parseOffset(s string) (time.Duration, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.ToUpper(s), "UTC"), "GMT")
	if len(s) < 2 || (s[0] != '+' && s[0] != '-') {
		return 0, fmt.Errorf("bad UTC offset %q", s)
	}

	sign := time.Duration(1)
	if s[0] == '-' {
		sign = -1
	}
	body := strings.ReplaceAll(s[1:], ":", "")

	var hours, minutes int
	var err error
	switch len(body) {
	case 1, 2:
		hours, err = strconv.Atoi(body)
	case 4:
		hours, err = strconv.Atoi(body[:2])
		if err == nil {
			minutes, err = strconv.Atoi(body[2:])
		}
	default:
		return 0, fmt.Errorf("bad UTC offset %q", s)
	}
	if err != nil || hours > 14 || minutes > 59 {
		return 0, fmt.Errorf("bad UTC offset %q", s)
	}

	return sign * (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute), nil
}
