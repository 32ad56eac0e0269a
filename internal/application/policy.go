package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sevenpast/campcore/internal/persistence"
	"github.com/sevenpast/campcore/internal/recurrence"
)

// DefaultMaxSeriesOccurrences caps the number of occurrences a single series may
// persist when no explicit ceiling is configured.
const DefaultMaxSeriesOccurrences = 366

// SchedulingPolicy carries camp-wide settings shared by the scheduling services.
type SchedulingPolicy struct {
	// Location is the camp timezone used for calendar-day rules.
	Location *time.Location
	// MaxSeriesOccurrences rejects recurring requests that would generate more
	// occurrences than this.
	MaxSeriesOccurrences int
}

func (p SchedulingPolicy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

func (p SchedulingPolicy) maxOccurrences() int {
	if p.MaxSeriesOccurrences <= 0 {
		return DefaultMaxSeriesOccurrences
	}
	return p.MaxSeriesOccurrences
}

// AssignmentPolicy configures resource assignment rules.
type AssignmentPolicy struct {
	// ExclusiveCategories lists equipment categories a guest may hold at most one
	// item of at a time.
	ExclusiveCategories []string
}

func (p AssignmentPolicy) exclusive(category string) bool {
	for _, c := range p.ExclusiveCategories {
		if strings.EqualFold(strings.TrimSpace(c), category) {
			return true
		}
	}
	return false
}

// toRecurrenceRule converts caller input into an engine rule.
func toRecurrenceRule(id string, input RecurrenceInput) (recurrence.Rule, error) {
	freq, err := recurrence.ParseFrequency(input.Frequency)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("%w: %w", ErrInvalidRecurrence, err)
	}
	days := make([]time.Weekday, 0, len(input.DaysOfWeek))
	for _, d := range input.DaysOfWeek {
		days = append(days, time.Weekday(d))
	}
	return recurrence.Rule{
		ID:             id,
		Frequency:      freq,
		Interval:       input.Interval,
		DaysOfWeek:     days,
		DayOfMonth:     input.DayOfMonth,
		EndDate:        input.EndDate,
		MaxOccurrences: input.MaxOccurrences,
	}, nil
}

// expandBounded expands rule and rejects series larger than limit without
// materialising more than limit+1 occurrences.
func expandBounded(engine *recurrence.Engine, rule recurrence.Rule, tmpl recurrence.Template, limit int) ([]recurrence.Occurrence, error) {
	seq, err := engine.Sequence(rule, tmpl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecurrence, err)
	}
	out := make([]recurrence.Occurrence, 0)
	for occ := range seq {
		if len(out) == limit {
			return nil, fmt.Errorf("%w: series exceeds %d occurrences", ErrInvalidRecurrence, limit)
		}
		out = append(out, occ)
	}
	return out, nil
}

func toSeries(id, kind string, rule recurrence.Rule, createdAt time.Time) persistence.Series {
	interval := rule.Interval
	if interval == 0 {
		interval = 1
	}
	return persistence.Series{
		ID:             id,
		Kind:           kind,
		Frequency:      rule.Frequency.String(),
		Interval:       interval,
		DaysOfWeek:     append([]time.Weekday(nil), rule.DaysOfWeek...),
		DayOfMonth:     rule.DayOfMonth,
		EndDate:        rule.EndDate,
		MaxOccurrences: rule.MaxOccurrences,
		CreatedAt:      createdAt,
	}
}

// mapStoreError translates persistence errors into application errors. notFound
// is returned in place of persistence.ErrNotFound so callers can use a refined kind.
func mapStoreError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if notFound == nil {
		notFound = ErrNotFound
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return notFound
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("record", "violates a storage constraint")
		return vErr
	}
	return err
}

func stringPtr(value string) *string {
	return &value
}
