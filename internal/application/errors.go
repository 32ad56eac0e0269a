package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInactive is returned when the entity exists but has been deactivated.
	ErrInactive = errors.New("application: inactive")
	// ErrCapacityExceeded is returned when a capacity-bounded resource is full.
	ErrCapacityExceeded = errors.New("application: capacity exceeded")
	// ErrUnavailable is returned when an exclusive resource is not free.
	ErrUnavailable = errors.New("application: unavailable")
	// ErrCategoryConflict is returned when category exclusivity would be violated.
	ErrCategoryConflict = errors.New("application: category conflict")
	// ErrTemporalConflict is returned when an actor would be double-booked.
	ErrTemporalConflict = errors.New("application: temporal conflict")
	// ErrInvalidInterval is returned for empty, inverted or cross-midnight intervals.
	ErrInvalidInterval = errors.New("application: invalid interval")
	// ErrInvalidRecurrence is returned for malformed or oversized recurrence rules.
	ErrInvalidRecurrence = errors.New("application: invalid recurrence")
	// ErrInvalidTimeFormat is returned when a cutoff or reset time cannot be parsed.
	ErrInvalidTimeFormat = errors.New("application: invalid time format")
	// ErrAlreadyExists is returned when a record with the same identity already exists.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrResourceInUse is returned when deactivating a resource that is still occupied.
	ErrResourceInUse = errors.New("application: resource in use")
	// ErrAssignmentClosed is returned when releasing an assignment that is already completed.
	ErrAssignmentClosed = errors.New("application: assignment already completed")
)

// Refinements of the broad kinds. Each matches its parent with errors.Is.
var (
	ErrGuestInactive       = fmt.Errorf("%w: guest", ErrInactive)
	ErrResourceInactive    = fmt.Errorf("%w: resource", ErrInactive)
	ErrResourceNotFound    = fmt.Errorf("%w: resource", ErrNotFound)
	ErrResourceFull        = fmt.Errorf("%w: resource full", ErrCapacityExceeded)
	ErrResourceUnavailable = fmt.Errorf("%w: resource not available", ErrUnavailable)
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// ConflictReason explains why a commitment was rejected.
type ConflictReason string

const (
	ConflictReasonOverlap         ConflictReason = "overlap"
	ConflictReasonCategorySameDay ConflictReason = "category_same_day"
)

// ConflictEntry is a single blocked actor in a conflict report.
type ConflictEntry struct {
	ActorID                 string
	Reason                  ConflictReason
	ConflictingCommitmentID string
	// OccurrenceStart identifies the generated occurrence for recurring requests.
	OccurrenceStart *time.Time
}

// ConflictReport lists every conflict found for a request.
type ConflictReport struct {
	Entries []ConflictEntry
}

// ConflictError carries a structured conflict report. It matches
// ErrTemporalConflict when any entry is an overlap and ErrCategoryConflict when
// any entry is a same-day category clash.
type ConflictError struct {
	Report ConflictReport
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	actors := make(map[string]struct{})
	for _, entry := range e.Report.Entries {
		actors[entry.ActorID] = struct{}{}
	}
	return fmt.Sprintf("application: %d scheduling conflict(s) for %d actor(s)", len(e.Report.Entries), len(actors))
}

// Is reports whether the report contains an entry of the kind named by target.
func (e *ConflictError) Is(target error) bool {
	if e == nil {
		return false
	}
	for _, entry := range e.Report.Entries {
		switch {
		case target == ErrTemporalConflict && entry.Reason == ConflictReasonOverlap:
			return true
		case target == ErrCategoryConflict && entry.Reason == ConflictReasonCategorySameDay:
			return true
		}
	}
	return false
}
