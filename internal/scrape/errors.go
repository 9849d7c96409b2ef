package scrape

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedGroup is returned for a token group that cannot be read as a match
	ErrMalformedGroup = errors.New("malformed match group")

	// ErrUndetermined is returned when a participant is still the TBD placeholder
	ErrUndetermined = fmt.Errorf("%w: participant not yet determined", ErrMalformedGroup)
)
