// Package schedule computes follow-up dose due-dates from a vaccine's dose
// schedule. It is pure: no I/O, no clock, exact calendar-day arithmetic.
package schedule

import (
	"fmt"
	"time"

	"vaxline/internal/models"
)

// doseOffsets maps a vaccine name to the day offsets of its follow-up doses,
// counted from the first dose. Lookup is by exact string match; names not in
// the table simply have no follow-up schedule.
var doseOffsets = map[string][]int{
	"cervix-type": {60, 180},
	"HepA-type":   {60},
	"HepB-type":   {30, 180},
}

// ParseError reports a malformed appointment date. Handlers map it to a
// client error rather than a server fault.
type ParseError struct {
	Input string
	err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid appointment date %q: want YYYY-MM-DD", e.Input)
}

func (e *ParseError) Unwrap() error { return e.err }

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, &ParseError{Input: s, err: err}
	}
	return t, nil
}

// Offsets returns a copy of the vaccine's follow-up day offsets, or nil for
// unknown vaccines.
func Offsets(vaccine string) []int {
	offsets, ok := doseOffsets[vaccine]
	if !ok {
		return nil
	}
	return append([]int(nil), offsets...)
}

// FollowUps returns the 0-2 follow-up dose dates for a vaccine, each the
// first-dose date plus an offset in days.
func FollowUps(vaccine string, first time.Time) []time.Time {
	offsets := doseOffsets[vaccine]
	dates := make([]time.Time, 0, len(offsets))
	for _, days := range offsets {
		dates = append(dates, first.AddDate(0, 0, days))
	}
	return dates
}

// FollowUpDates is FollowUps for string dates: it parses the first-dose date
// and formats the results back to YYYY-MM-DD.
func FollowUpDates(vaccine, firstDose string) ([]string, error) {
	first, err := ParseDate(firstDose)
	if err != nil {
		return nil, err
	}
	followUps := FollowUps(vaccine, first)
	dates := make([]string, len(followUps))
	for i, t := range followUps {
		dates[i] = t.Format(models.DateLayout)
	}
	return dates, nil
}
