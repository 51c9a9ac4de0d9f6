package domain

import (
	"fmt"
	"strings"
	"time"
)

// DurationUnit is the unit a seller picks for the auction length.
type DurationUnit string

const (
	DurationHours DurationUnit = "hours"
	DurationDays  DurationUnit = "days"
	DurationWeeks DurationUnit = "weeks"
)

// MaxAuctionDuration caps how far in the future an auction may end.
const MaxAuctionDuration = 90 * 24 * time.Hour

// DurationSpec is the seller supplied auction length, e.g. {3, days}.
type DurationSpec struct {
	Value int
	Unit  DurationUnit
}

// Duration converts d to a time.Duration. Unknown units count as days.
func (d DurationSpec) Duration() (time.Duration, error) {
	if d.Value <= 0 {
		return 0, fmt.Errorf("%w: duration must be greater than 0", ErrInvalidInput)
	}

	var unit time.Duration
	switch DurationUnit(strings.ToLower(string(d.Unit))) {
	case DurationHours:
		unit = time.Hour
	case DurationWeeks:
		unit = 7 * 24 * time.Hour
	default:
		unit = 24 * time.Hour
	}

	if int64(d.Value) > int64(MaxAuctionDuration/unit) {
		return 0, fmt.Errorf("%w: duration must not exceed %s", ErrInvalidInput, MaxAuctionDuration)
	}
	return time.Duration(d.Value) * unit, nil
}

// EndTime returns the absolute deadline for an auction starting at start.
func (d DurationSpec) EndTime(start time.Time) (time.Time, error) {
	dur, err := d.Duration()
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(dur), nil
}
