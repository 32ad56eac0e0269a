package recurrence

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"
)

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily advances the anchor by Interval days.
	FrequencyDaily
	// FrequencyWeekly advances by Interval weeks, or walks the selected weekdays.
	FrequencyWeekly
	// FrequencyMonthly advances by Interval months, or lands on DayOfMonth.
	FrequencyMonthly
)

// String returns the lower-case name used in configuration and transport payloads.
func (f Frequency) String() string {
	switch f {
	case FrequencyDaily:
		return "daily"
	case FrequencyWeekly:
		return "weekly"
	case FrequencyMonthly:
		return "monthly"
	default:
		return "unspecified"
	}
}

// ParseFrequency converts a frequency name into a Frequency.
func ParseFrequency(value string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "daily":
		return FrequencyDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	default:
		return FrequencyUnspecified, fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
	}
}

// Rule describes a recurrence configuration.
//
// MaxOccurrences == 0 means the rule is bounded only by EndDate. A rule must carry
// at least one of the two bounds.
type Rule struct {
	ID             string
	Frequency      Frequency
	Interval       int
	DaysOfWeek     []time.Weekday
	DayOfMonth     int
	EndDate        *time.Time
	MaxOccurrences int
}

// Template is the anchor occurrence a rule is expanded from. End may be zero for
// instant-like occurrences such as a meal date.
type Template struct {
	Start time.Time
	End   time.Time
}

// Occurrence represents a generated instance of a recurrence rule.
type Occurrence struct {
	RuleID   string
	Sequence int
	Date     time.Time
	Start    time.Time
	End      time.Time
}

var (
	// ErrInvalidFrequency indicates the recurrence frequency is not supported.
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	// ErrInvalidRule indicates a malformed rule (selectors, interval or bounds).
	ErrInvalidRule = errors.New("recurrence: invalid rule")
	// ErrUnbounded indicates the rule has neither an end date nor an occurrence cap.
	ErrUnbounded = errors.New("recurrence: rule requires an end date or a maximum occurrence count")
	// ErrInvalidDuration indicates the template ends before it starts.
	ErrInvalidDuration = errors.New("recurrence: template duration must not be negative")
)

// Engine expands recurrence rules into occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that evaluates calendar dates in the provided
// location. If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Location returns the timezone the engine evaluates calendar dates in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// Validate checks the rule without expanding it.
func (e *Engine) Validate(rule Rule) error {
	switch rule.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return ErrInvalidFrequency
	}
	if rule.Interval < 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidRule)
	}
	if len(rule.DaysOfWeek) > 0 {
		if rule.Frequency != FrequencyWeekly {
			return fmt.Errorf("%w: days of week require a weekly frequency", ErrInvalidRule)
		}
		for _, day := range rule.DaysOfWeek {
			if day < time.Sunday || day > time.Saturday {
				return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, day)
			}
		}
	}
	if rule.DayOfMonth != 0 {
		if rule.Frequency != FrequencyMonthly {
			return fmt.Errorf("%w: day of month requires a monthly frequency", ErrInvalidRule)
		}
		if rule.DayOfMonth < 1 || rule.DayOfMonth > 31 {
			return fmt.Errorf("%w: day of month %d out of range", ErrInvalidRule, rule.DayOfMonth)
		}
	}
	if rule.MaxOccurrences < 0 {
		return fmt.Errorf("%w: max occurrences must not be negative", ErrInvalidRule)
	}
	if rule.EndDate == nil && rule.MaxOccurrences == 0 {
		return ErrUnbounded
	}
	return nil
}

// Expand produces every occurrence of rule anchored at tmpl, in chronological order.
func (e *Engine) Expand(rule Rule, tmpl Template) ([]Occurrence, error) {
	seq, err := e.Sequence(rule, tmpl)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// Sequence returns a lazy, finite sequence of occurrences. The sequence holds no
// state between iterations and may be ranged over any number of times.
//
// Expansion semantics:
//   - weekly with DaysOfWeek: walk day by day from the anchor date and emit each
//     selected weekday; weeks are counted from the anchor's Monday-start week so
//     Interval > 1 skips whole weeks.
//   - monthly with DayOfMonth: visit every Interval-th month from the anchor month
//     and emit DayOfMonth (clamped to the month length) when it is on or after the
//     anchor date.
//   - otherwise: step the anchor date by Interval days, weeks or months.
//
// Expansion stops once MaxOccurrences have been emitted or a date passes EndDate.
func (e *Engine) Sequence(rule Rule, tmpl Template) (iter.Seq[Occurrence], error) {
	if err := e.Validate(rule); err != nil {
		return nil, err
	}
	if tmpl.Start.IsZero() {
		return nil, fmt.Errorf("%w: template start is required", ErrInvalidRule)
	}
	var duration time.Duration
	if !tmpl.End.IsZero() {
		duration = tmpl.End.Sub(tmpl.Start)
		if duration < 0 {
			return nil, ErrInvalidDuration
		}
	}

	loc := e.Location()
	interval := rule.Interval
	if interval == 0 {
		interval = 1
	}
	anchor := tmpl.Start.In(loc)
	anchorDate := dateOf(anchor, loc)

	var endDate time.Time
	if rule.EndDate != nil {
		endDate = dateOf(*rule.EndDate, loc)
	}
	pastEnd := func(date time.Time) bool {
		return !endDate.IsZero() && date.After(endDate)
	}

	weekdays := make(map[time.Weekday]struct{}, len(rule.DaysOfWeek))
	for _, day := range rule.DaysOfWeek {
		weekdays[day] = struct{}{}
	}

	return func(yield func(Occurrence) bool) {
		emitted := 0
		emit := func(date time.Time) bool {
			start := combineDateTime(date, anchor, loc)
			occ := Occurrence{
				RuleID:   rule.ID,
				Sequence: emitted,
				Date:     date,
				Start:    start,
				End:      start,
			}
			if duration > 0 {
				occ.End = start.Add(duration)
			}
			emitted++
			if !yield(occ) {
				return false
			}
			return rule.MaxOccurrences == 0 || emitted < rule.MaxOccurrences
		}

		switch {
		case rule.Frequency == FrequencyWeekly && len(weekdays) > 0:
			firstWeek := startOfWeek(anchorDate)
			for day := 0; ; day++ {
				date := addDays(anchorDate, day)
				if pastEnd(date) {
					return
				}
				if _, ok := weekdays[date.Weekday()]; !ok {
					continue
				}
				weeks := daysBetween(firstWeek, date) / 7
				if weeks%interval != 0 {
					continue
				}
				if !emit(date) {
					return
				}
			}
		case rule.Frequency == FrequencyMonthly && rule.DayOfMonth > 0:
			for step := 0; ; step++ {
				date := monthDay(anchorDate, step*interval, rule.DayOfMonth)
				if pastEnd(date) {
					return
				}
				if date.Before(anchorDate) {
					continue
				}
				if !emit(date) {
					return
				}
			}
		default:
			for step := 0; ; step++ {
				var date time.Time
				switch rule.Frequency {
				case FrequencyDaily:
					date = addDays(anchorDate, step*interval)
				case FrequencyWeekly:
					date = addDays(anchorDate, 7*step*interval)
				default:
					date = monthDay(anchorDate, step*interval, anchorDate.Day())
				}
				if pastEnd(date) {
					return
				}
				if !emit(date) {
					return
				}
			}
		}
	}, nil
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func addDays(date time.Time, days int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day()+days, 0, 0, 0, 0, date.Location())
}

// monthDay returns day (clamped to the month length) of the month that is months
// after date's month.
func monthDay(date time.Time, months, day int) time.Time {
	first := time.Date(date.Year(), date.Month()+time.Month(months), 1, 0, 0, 0, 0, date.Location())
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, date.Location()).Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, date.Location())
}

func startOfWeek(date time.Time) time.Time {
	// Monday == 1, Sunday == 0.
	offset := (int(date.Weekday()) + 6) % 7
	return addDays(date, -offset)
}

func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func combineDateTime(date, template time.Time, loc *time.Location) time.Time {
	clock := template.In(loc)
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), loc)
}
