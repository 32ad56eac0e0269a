package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/sevenpast/campcore/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var base, scoped bytes.Buffer
	baseLogger := slog.New(slog.NewJSONHandler(&base, nil))
	ctxLogger := slog.New(slog.NewJSONHandler(&scoped, nil))
	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)

	serviceLogger(ctx, baseLogger, "AssignmentService", "AssignBed", "guest_id", "guest-1").Info("hello")

	if base.Len() != 0 {
		t.Fatalf("expected base logger to stay silent, got %s", base.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(scoped.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry: %v", err)
	}
	if entry["service"] != "AssignmentService" || entry["operation"] != "AssignBed" || entry["guest_id"] != "guest-1" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNotFound, "not_found"},
		{ErrResourceNotFound, "not_found"},
		{ErrGuestInactive, "inactive"},
		{fmt.Errorf("%w: 4/4", ErrResourceFull), "capacity_exceeded"},
		{ErrResourceUnavailable, "unavailable"},
		{ErrCategoryConflict, "category_conflict"},
		{&ConflictError{Report: ConflictReport{Entries: []ConflictEntry{{Reason: ConflictReasonOverlap}}}}, "temporal_conflict"},
		{&ConflictError{Report: ConflictReport{Entries: []ConflictEntry{{Reason: ConflictReasonCategorySameDay}}}}, "category_conflict"},
		{ErrInvalidInterval, "invalid_interval"},
		{ErrInvalidRecurrence, "invalid_recurrence"},
		{ErrInvalidTimeFormat, "invalid_time_format"},
		{ErrResourceInUse, "resource_in_use"},
		{ErrAssignmentClosed, "assignment_closed"},
		{ErrAlreadyExists, "already_exists"},
		{&ValidationError{FieldErrors: map[string]string{"name": "required"}}, "validation"},
		{errors.New("boom"), "unexpected"},
	}

	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
