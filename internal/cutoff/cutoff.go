// Package cutoff evaluates time-windowed booking availability for dated
// occurrences. Every function is pure: the effective status is derived from the
// stored policy and the supplied wall clock on each read and is never persisted.
package cutoff

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeFormat indicates a cutoff or reset time that is not "HH:MM".
var ErrInvalidTimeFormat = errors.New("cutoff: invalid time format")

// Status is the effective booking status of an occurrence.
type Status string

const (
	// StatusActive means bookings are governed by the stored flag only.
	StatusActive Status = "active"
	// StatusCutoffReached means the cutoff time has passed for today's occurrence.
	StatusCutoffReached Status = "cutoff_reached"
)

// Reasons attached to an Evaluation.
const (
	ReasonOpen              = "open"
	ReasonClosed            = "booking_closed"
	ReasonCutoffPassed      = "cutoff_passed"
	ReasonReopened          = "reopened"
	ReasonInvalidCutoffTime = "invalid_cutoff_time"
)

// Policy is the stored cutoff configuration of a bookable occurrence.
type Policy struct {
	CutoffTime      string
	CutoffEnabled   bool
	ResetTime       string
	ResetEnabled    bool
	IsBookingActive bool
	// ReopenedAt records the last re-open, by staff or by the periodic reset.
	ReopenedAt *time.Time
}

// Evaluation is the derived booking state of an occurrence at a given instant.
type Evaluation struct {
	Status  Status
	CanBook bool
	Reason  string
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses a 24-hour "HH:MM" value.
func ParseClock(value string) (Clock, error) {
	trimmed := strings.TrimSpace(value)
	hh, mm, ok := strings.Cut(trimmed, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// String formats the clock as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the instant of the clock on the calendar date of date in loc.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

// IsToday reports whether date falls on the same calendar day as now in loc.
func IsToday(date, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	dy, dm, dd := date.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return dy == ny && dm == nm && dd == nd
}

// Evaluate derives the booking status of an occurrence dated date at now.
//
// The cutoff only applies to today's occurrence. Once it has passed the status is
// cutoff_reached unless booking was re-opened at or after the cutoff instant. A
// malformed cutoff time is returned as an error together with an active status so
// that bookings are never locked out silently.
func Evaluate(policy Policy, date, now time.Time, loc *time.Location) (Evaluation, error) {
	open := Evaluation{Status: StatusActive, CanBook: policy.IsBookingActive, Reason: ReasonOpen}
	if !policy.IsBookingActive {
		open.Reason = ReasonClosed
	}
	if !policy.CutoffEnabled {
		return open, nil
	}

	clock, err := ParseClock(policy.CutoffTime)
	if err != nil {
		open.Reason = ReasonInvalidCutoffTime
		return open, err
	}
	if !IsToday(date, now, loc) {
		return open, nil
	}

	cutoffAt := clock.On(date, loc)
	if now.Before(cutoffAt) {
		return open, nil
	}
	if policy.IsBookingActive && policy.ReopenedAt != nil && !policy.ReopenedAt.Before(cutoffAt) {
		return Evaluation{Status: StatusActive, CanBook: true, Reason: ReasonReopened}, nil
	}
	return Evaluation{Status: StatusCutoffReached, CanBook: false, Reason: ReasonCutoffPassed}, nil
}

// ResetDue reports whether the periodic reset should re-open booking for an
// occurrence dated date at now. Today's occurrence is only reset once the reset
// time has passed; occurrences on other dates are reset on any cycle. The stored
// flag is not consulted: a passed cutoff leaves it true.
func ResetDue(policy Policy, date, now time.Time, loc *time.Location) (bool, error) {
	if !policy.ResetEnabled {
		return false, nil
	}
	clock, err := ParseClock(policy.ResetTime)
	if err != nil {
		return false, err
	}
	if !IsToday(date, now, loc) {
		return true, nil
	}
	return !now.Before(clock.On(date, loc)), nil
}
