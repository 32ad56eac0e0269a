package scheduler

import (
	"errors"
	"sort"
	"time"
)

// ErrInvalidInterval indicates an interval that is empty, inverted or spans midnight.
var ErrInvalidInterval = errors.New("scheduler: invalid interval")

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Commitment binds an actor (staff member or guest) to an interval.
type Commitment struct {
	ID       string
	ActorID  string
	Category string
	Interval Interval
}

// ConflictType describes the type of conflict detected between commitments.
type ConflictType string

const (
	// ConflictTypeOverlap indicates the actor is double-booked in time.
	ConflictTypeOverlap ConflictType = "overlap"
	// ConflictTypeCategory indicates the actor already holds a commitment of the
	// same category on the same calendar day.
	ConflictTypeCategory ConflictType = "category_same_day"
)

// Conflict details an existing commitment that blocks a candidate.
type Conflict struct {
	WithCommitmentID string
	ActorID          string
	Type             ConflictType
	Interval         Interval
}

// Overlaps reports whether two half-open intervals intersect. Touching endpoints
// do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// ValidateSameDay rejects intervals whose end is not after their start and intervals
// whose start and end fall on different calendar dates in loc.
func ValidateSameDay(start, end time.Time, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return ErrInvalidInterval
	}
	if !SameDate(start, end, loc) {
		return ErrInvalidInterval
	}
	return nil
}

// SameDate reports whether a and b fall on the same calendar date in loc.
func SameDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// FindConflicts returns the commitments of actorID that overlap [start, end),
// ignoring excludeID. The result is ordered by start time.
func FindConflicts(existing []Commitment, actorID string, start, end time.Time, excludeID string) []Commitment {
	candidate := Interval{Start: start, End: end}
	out := make([]Commitment, 0)
	for _, c := range existing {
		if c.ActorID != actorID {
			continue
		}
		if excludeID != "" && c.ID == excludeID {
			continue
		}
		if Overlaps(c.Interval, candidate) {
			out = append(out, c)
		}
	}
	sortByStart(out)
	return out
}

// HasConflict reports whether actorID already holds a commitment overlapping [start, end).
func HasConflict(existing []Commitment, actorID string, start, end time.Time, excludeID string) bool {
	return len(FindConflicts(existing, actorID, start, end, excludeID)) > 0
}

// CategoryConflictOnDate returns the first commitment of guestID in category on the
// calendar date of date (in loc), or nil when none exists.
func CategoryConflictOnDate(existing []Commitment, guestID, category string, date time.Time, loc *time.Location) *Commitment {
	if loc == nil {
		loc = time.UTC
	}
	matches := make([]Commitment, 0, 1)
	for _, c := range existing {
		if c.ActorID != guestID || c.Category != category {
			continue
		}
		if SameDate(c.Interval.Start, date, loc) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sortByStart(matches)
	found := matches[0]
	return &found
}

// DetectConflicts identifies every conflict for candidate against existing commitments.
// Category exclusivity is only evaluated when exclusiveCategory is true.
func DetectConflicts(existing []Commitment, candidate Commitment, exclusiveCategory bool, loc *time.Location) []Conflict {
	if loc == nil {
		loc = time.UTC
	}
	conflicts := make([]Conflict, 0)
	seen := make(map[string]struct{})

	for _, c := range FindConflicts(existing, candidate.ActorID, candidate.Interval.Start, candidate.Interval.End, candidate.ID) {
		seen[c.ID] = struct{}{}
		conflicts = append(conflicts, Conflict{
			WithCommitmentID: c.ID,
			ActorID:          candidate.ActorID,
			Type:             ConflictTypeOverlap,
			Interval:         c.Interval,
		})
	}

	if exclusiveCategory && candidate.Category != "" {
		for _, c := range existing {
			if c.ID == candidate.ID || c.ActorID != candidate.ActorID || c.Category != candidate.Category {
				continue
			}
			if _, ok := seen[c.ID]; ok {
				continue
			}
			if !SameDate(c.Interval.Start, candidate.Interval.Start, loc) {
				continue
			}
			conflicts = append(conflicts, Conflict{
				WithCommitmentID: c.ID,
				ActorID:          candidate.ActorID,
				Type:             ConflictTypeCategory,
				Interval:         c.Interval,
			})
		}
	}

	if len(conflicts) == 0 {
		return nil
	}
	return conflicts
}

func sortByStart(items []Commitment) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Interval.Start.Equal(items[j].Interval.Start) {
			return items[i].ID < items[j].ID
		}
		return items[i].Interval.Start.Before(items[j].Interval.Start)
	})
}
