package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"label": "required", "end_at": "invalid"}}
	if got := withFields.Error(); got != "validation failed: end_at, label" {
		t.Fatalf("expected sorted field names in message, got %q", got)
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	if base.HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	base.merge(&ValidationError{FieldErrors: map[string]string{"second": "another"}})
	base.merge(nil)
	if len(base.FieldErrors) != 2 || !base.HasErrors() {
		t.Fatalf("expected two field errors, got %v", base.FieldErrors)
	}
}

func TestRefinedErrorsMatchParents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		parent error
	}{
		{ErrGuestInactive, ErrInactive},
		{ErrResourceInactive, ErrInactive},
		{ErrResourceNotFound, ErrNotFound},
		{ErrResourceFull, ErrCapacityExceeded},
		{ErrResourceUnavailable, ErrUnavailable},
		{fmt.Errorf("%w: bed-1 occupancy 2/2", ErrResourceFull), ErrCapacityExceeded},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.parent) {
			t.Fatalf("expected %v to match %v", tc.err, tc.parent)
		}
	}
	if errors.Is(ErrGuestInactive, ErrResourceInactive) {
		t.Fatal("expected sibling refinements to stay distinct")
	}
}

func TestConflictError_Is(t *testing.T) {
	t.Parallel()

	overlap := &ConflictError{Report: ConflictReport{Entries: []ConflictEntry{
		{ActorID: "staff-1", Reason: ConflictReasonOverlap, ConflictingCommitmentID: "c-1"},
	}}}
	if !errors.Is(overlap, ErrTemporalConflict) || errors.Is(overlap, ErrCategoryConflict) {
		t.Fatalf("expected overlap report to match only ErrTemporalConflict")
	}

	mixed := &ConflictError{Report: ConflictReport{Entries: []ConflictEntry{
		{ActorID: "guest-1", Reason: ConflictReasonOverlap, ConflictingCommitmentID: "c-1"},
		{ActorID: "guest-2", Reason: ConflictReasonCategorySameDay, ConflictingCommitmentID: "c-2"},
	}}}
	wrapped := fmt.Errorf("create lesson assignment: %w", mixed)
	if !errors.Is(wrapped, ErrTemporalConflict) || !errors.Is(wrapped, ErrCategoryConflict) {
		t.Fatalf("expected mixed report to match both conflict kinds")
	}

	var conflictErr *ConflictError
	if !errors.As(wrapped, &conflictErr) || len(conflictErr.Report.Entries) != 2 {
		t.Fatalf("expected report to be recoverable with errors.As")
	}
	if got := mixed.Error(); got != "application: 2 scheduling conflict(s) for 2 actor(s)" {
		t.Fatalf("unexpected message %q", got)
	}
}
