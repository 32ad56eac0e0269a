package scheduler

import (
	"errors"
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, time.January, 1, hour, minute, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"touching boundary does not conflict", Interval{at(9, 0), at(11, 0)}, Interval{at(11, 0), at(13, 0)}, false},
		{"partial overlap conflicts", Interval{at(9, 0), at(11, 0)}, Interval{at(10, 0), at(12, 0)}, true},
		{"containment conflicts", Interval{at(9, 0), at(17, 0)}, Interval{at(12, 0), at(13, 0)}, true},
		{"identical intervals conflict", Interval{at(9, 0), at(10, 0)}, Interval{at(9, 0), at(10, 0)}, true},
		{"disjoint intervals", Interval{at(7, 0), at(8, 0)}, Interval{at(9, 0), at(10, 0)}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Overlaps(tc.a, tc.b); got != tc.want {
				t.Fatalf("Overlaps(a, b) = %v, want %v", got, tc.want)
			}
			if got := Overlaps(tc.b, tc.a); got != tc.want {
				t.Fatalf("Overlaps(b, a) = %v, want %v (must be symmetric)", got, tc.want)
			}
		})
	}
}

func TestValidateSameDay(t *testing.T) {
	t.Parallel()

	t.Run("rejects cross-midnight intervals", func(t *testing.T) {
		start := time.Date(2024, time.January, 1, 23, 0, 0, 0, time.UTC)
		end := time.Date(2024, time.January, 2, 1, 0, 0, 0, time.UTC)
		if err := ValidateSameDay(start, end, time.UTC); !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("expected ErrInvalidInterval, got %v", err)
		}
	})

	t.Run("rejects end before or equal to start", func(t *testing.T) {
		if err := ValidateSameDay(at(10, 0), at(10, 0), time.UTC); !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("expected ErrInvalidInterval for empty interval, got %v", err)
		}
		if err := ValidateSameDay(at(11, 0), at(10, 0), time.UTC); !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("expected ErrInvalidInterval for inverted interval, got %v", err)
		}
	})

	t.Run("evaluates the calendar date in the camp timezone", func(t *testing.T) {
		loc := time.FixedZone("CET", 60*60)
		// 22:30Z-23:30Z is 23:30-00:30 in CET.
		start := time.Date(2024, time.January, 1, 22, 30, 0, 0, time.UTC)
		end := time.Date(2024, time.January, 1, 23, 30, 0, 0, time.UTC)
		if err := ValidateSameDay(start, end, time.UTC); err != nil {
			t.Fatalf("expected interval to be valid in UTC, got %v", err)
		}
		if err := ValidateSameDay(start, end, loc); !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("expected ErrInvalidInterval in CET, got %v", err)
		}
	})

	t.Run("accepts same-day interval", func(t *testing.T) {
		if err := ValidateSameDay(at(9, 0), at(17, 0), nil); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})
}

func TestHasConflict(t *testing.T) {
	t.Parallel()

	existing := []Commitment{
		{ID: "c-1", ActorID: "staff-1", Interval: Interval{at(9, 0), at(11, 0)}},
		{ID: "c-2", ActorID: "staff-2", Interval: Interval{at(10, 0), at(12, 0)}},
	}

	if HasConflict(existing, "staff-1", at(11, 0), at(13, 0), "") {
		t.Fatal("expected touching interval not to conflict")
	}
	if !HasConflict(existing, "staff-1", at(10, 0), at(12, 0), "") {
		t.Fatal("expected overlapping interval to conflict")
	}
	if HasConflict(existing, "staff-1", at(10, 0), at(12, 0), "c-1") {
		t.Fatal("expected excluded commitment to be ignored during edits")
	}
	if HasConflict(existing, "staff-3", at(9, 0), at(12, 0), "") {
		t.Fatal("expected other actors' commitments to be ignored")
	}
}

func TestCategoryConflictOnDate(t *testing.T) {
	t.Parallel()

	existing := []Commitment{
		{ID: "l-2", ActorID: "guest-1", Category: "surf", Interval: Interval{at(14, 0), at(15, 0)}},
		{ID: "l-1", ActorID: "guest-1", Category: "surf", Interval: Interval{at(9, 0), at(10, 0)}},
		{ID: "l-3", ActorID: "guest-1", Category: "yoga", Interval: Interval{at(7, 0), at(8, 0)}},
	}

	found := CategoryConflictOnDate(existing, "guest-1", "surf", at(18, 0), time.UTC)
	if found == nil || found.ID != "l-1" {
		t.Fatalf("expected earliest surf commitment l-1, got %+v", found)
	}

	nextDay := at(9, 0).AddDate(0, 0, 1)
	if got := CategoryConflictOnDate(existing, "guest-1", "surf", nextDay, time.UTC); got != nil {
		t.Fatalf("expected no conflict on another day, got %+v", got)
	}
	if got := CategoryConflictOnDate(existing, "guest-2", "surf", at(9, 0), time.UTC); got != nil {
		t.Fatalf("expected no conflict for another guest, got %+v", got)
	}
}

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	existing := []Commitment{
		{ID: "l-1", ActorID: "guest-1", Category: "surf", Interval: Interval{at(9, 0), at(10, 0)}},
		{ID: "l-2", ActorID: "guest-1", Category: "yoga", Interval: Interval{at(12, 0), at(13, 0)}},
	}

	t.Run("overlap produces conflict", func(t *testing.T) {
		candidate := Commitment{ActorID: "guest-1", Category: "climb", Interval: Interval{at(12, 30), at(13, 30)}}
		conflicts := DetectConflicts(existing, candidate, true, time.UTC)
		if len(conflicts) != 1 || conflicts[0].WithCommitmentID != "l-2" || conflicts[0].Type != ConflictTypeOverlap {
			t.Fatalf("unexpected conflicts: %+v", conflicts)
		}
	})

	t.Run("same category same day produces conflict", func(t *testing.T) {
		candidate := Commitment{ActorID: "guest-1", Category: "surf", Interval: Interval{at(15, 0), at(16, 0)}}
		conflicts := DetectConflicts(existing, candidate, true, time.UTC)
		if len(conflicts) != 1 || conflicts[0].WithCommitmentID != "l-1" || conflicts[0].Type != ConflictTypeCategory {
			t.Fatalf("unexpected conflicts: %+v", conflicts)
		}
	})

	t.Run("category rule can be disabled", func(t *testing.T) {
		candidate := Commitment{ActorID: "guest-1", Category: "surf", Interval: Interval{at(15, 0), at(16, 0)}}
		if conflicts := DetectConflicts(existing, candidate, false, time.UTC); conflicts != nil {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("overlapping same category is reported once", func(t *testing.T) {
		candidate := Commitment{ActorID: "guest-1", Category: "surf", Interval: Interval{at(9, 30), at(10, 30)}}
		conflicts := DetectConflicts(existing, candidate, true, time.UTC)
		if len(conflicts) != 1 || conflicts[0].Type != ConflictTypeOverlap {
			t.Fatalf("expected a single overlap conflict, got %+v", conflicts)
		}
	})

	t.Run("non-overlapping commitments yield no conflicts", func(t *testing.T) {
		candidate := Commitment{ActorID: "guest-1", Category: "climb", Interval: Interval{at(10, 0), at(12, 0)}}
		if conflicts := DetectConflicts(existing, candidate, true, nil); conflicts != nil {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})
}
