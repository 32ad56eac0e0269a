package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/sevenpast/campcore/internal/events"
	"github.com/sevenpast/campcore/internal/persistence"
	"github.com/sevenpast/campcore/internal/persistence/memory"
)

type publisherStub struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *publisherStub) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *publisherStub) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Name
	}
	return out
}

type facadeFixture struct {
	facade    *Facade
	store     *memory.Storage
	publisher *publisherStub
	spans     *tracetest.SpanRecorder
}

func newFacadeFixture(t *testing.T) facadeFixture {
	t.Helper()
	store := memory.New()
	mustGuest(t, store, "guest-1", true)
	mustGuest(t, store, "guest-2", true)
	mustStaff(t, store, "staff-1", true)
	mustRoom(t, store, "room-1", true)
	mustBed(t, store, "room-1", "bed-1", 1, true)
	mustEquipment(t, store, "board-1", "surfboard")
	mustLesson(t, store, "surf-am", "surf", at(3, 9, 0), at(3, 11, 0))

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	publisher := &publisherStub{}
	facade := NewFacade(FacadeConfig{
		Store:       store,
		Assignment:  AssignmentPolicy{ExclusiveCategories: []string{"surfboard"}},
		IDGenerator: sequentialIDs("id"),
		Now:         fixedNow(testNow),
		Logger:      quietLogger(),
		Tracer:      provider.Tracer(TracerName),
		Publisher:   publisher,
	})
	return facadeFixture{facade: facade, store: store, publisher: publisher, spans: recorder}
}

func (f facadeFixture) span(t *testing.T, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range f.spans.Ended() {
		if span.Name() == name {
			return span
		}
	}
	t.Fatalf("span %s was not recorded", name)
	return nil
}

func TestFacade_PublishesEventsAfterSuccess(t *testing.T) {
	t.Parallel()

	fx := newFacadeFixture(t)
	ctx := context.Background()

	assignment, err := fx.facade.AssignBed(ctx, AssignBedParams{GuestID: "guest-1", BedID: "bed-1", ActorID: "staff-1"})
	if err != nil {
		t.Fatalf("AssignBed returned error: %v", err)
	}
	if _, err := fx.facade.AssignEquipment(ctx, AssignEquipmentParams{EquipmentID: "board-1", GuestID: "guest-1"}); err != nil {
		t.Fatalf("AssignEquipment returned error: %v", err)
	}
	if _, err := fx.facade.ReleaseBed(ctx, assignment.ID); err != nil {
		t.Fatalf("ReleaseBed returned error: %v", err)
	}
	if _, err := fx.facade.CreateShift(ctx, CreateShiftParams{StaffID: "staff-1", RoleLabel: "Bar", StartAt: at(3, 9, 0), EndAt: at(3, 12, 0)}); err != nil {
		t.Fatalf("CreateShift returned error: %v", err)
	}
	if _, err := fx.facade.CreateLessonAssignment(ctx, CreateLessonAssignmentParams{LessonID: "surf-am", GuestIDs: []string{"guest-1", "guest-2"}}); err != nil {
		t.Fatalf("CreateLessonAssignment returned error: %v", err)
	}
	bookables, err := fx.facade.CreateBookable(ctx, CreateBookableParams{
		Kind:       persistence.BookableKindMeal,
		Category:   "dinner",
		Title:      "Dinner",
		Date:       at(2, 0, 0),
		Policy:     CutoffPolicyInput{ResetTime: "20:00", ResetEnabled: true},
		Recurrence: &RecurrenceInput{Frequency: "daily", MaxOccurrences: 2},
	})
	if err != nil {
		t.Fatalf("CreateBookable returned error: %v", err)
	}
	if _, err := fx.facade.SetBookingActive(ctx, bookables[1].ID, false); err != nil {
		t.Fatalf("SetBookingActive returned error: %v", err)
	}
	count, err := fx.facade.ResetCutoffs(ctx, ResetFilter{Category: "dinner"})
	if err != nil {
		t.Fatalf("ResetCutoffs returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one reset, got %d", count)
	}

	want := []string{
		events.BedAssigned,
		events.EquipmentAssigned,
		events.BedReleased,
		events.ShiftCreated,
		events.LessonAssigned,
		events.BookableCreated,
		events.BookingToggled,
		events.CutoffsReset,
	}
	got := fx.publisher.names()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	first := fx.publisher.events[0]
	if first.SubjectID != assignment.ID || first.ActorID != "staff-1" || !first.OccurredAt.Equal(testNow) {
		t.Fatalf("unexpected bed event: %+v", first)
	}
	if first.Attributes["bed_id"] != "bed-1" {
		t.Fatalf("expected bed_id attribute, got %v", first.Attributes)
	}
	created := fx.publisher.events[5]
	if created.Attributes["series_id"] != *bookables[0].SeriesID || created.Attributes["occurrences"] != 2 {
		t.Fatalf("unexpected bookable event attributes: %v", created.Attributes)
	}

	span := fx.span(t, "Facade.AssignBed")
	if span.Status().Code == codes.Error {
		t.Fatalf("expected successful span, got %+v", span.Status())
	}
}

func TestFacade_FailuresAreTracedAndNotPublished(t *testing.T) {
	t.Parallel()

	fx := newFacadeFixture(t)
	ctx := context.Background()

	_, err := fx.facade.AssignBed(ctx, AssignBedParams{GuestID: "nobody", BedID: "bed-1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if names := fx.publisher.names(); len(names) != 0 {
		t.Fatalf("expected no events, got %v", names)
	}
	span := fx.span(t, "Facade.AssignBed")
	if span.Status().Code != codes.Error || span.Status().Description != "not_found" {
		t.Fatalf("expected error status not_found, got %+v", span.Status())
	}

	// Nothing to reset and nobody newly assigned: no events either.
	if _, err := fx.facade.ResetCutoffs(ctx, ResetFilter{}); err != nil {
		t.Fatalf("ResetCutoffs returned error: %v", err)
	}
	if _, err := fx.facade.CreateLessonAssignment(ctx, CreateLessonAssignmentParams{LessonID: "surf-am", GuestIDs: []string{"guest-1"}}); err != nil {
		t.Fatalf("CreateLessonAssignment returned error: %v", err)
	}
	if _, err := fx.facade.CreateLessonAssignment(ctx, CreateLessonAssignmentParams{LessonID: "surf-am", GuestIDs: []string{"guest-1"}}); err != nil {
		t.Fatalf("repeat CreateLessonAssignment returned error: %v", err)
	}
	if names := fx.publisher.names(); len(names) != 1 || names[0] != events.LessonAssigned {
		t.Fatalf("expected a single lesson event, got %v", names)
	}
}

func TestFacade_PublishFailureDoesNotFailTheCall(t *testing.T) {
	t.Parallel()

	fx := newFacadeFixture(t)
	fx.publisher.err = errors.New("broker down")

	assignment, err := fx.facade.AssignBed(context.Background(), AssignBedParams{GuestID: "guest-1", BedID: "bed-1"})
	if err != nil {
		t.Fatalf("expected success despite publish failure, got %v", err)
	}
	if _, err := fx.store.GetAssignment(context.Background(), assignment.ID); err != nil {
		t.Fatalf("expected assignment to be stored, got %v", err)
	}
}

func TestFacade_DeactivationAndReconcile(t *testing.T) {
	t.Parallel()

	fx := newFacadeFixture(t)
	ctx := context.Background()

	assignment, err := fx.facade.AssignBed(ctx, AssignBedParams{GuestID: "guest-1", BedID: "bed-1"})
	if err != nil {
		t.Fatalf("AssignBed returned error: %v", err)
	}
	if err := fx.facade.DeactivateRoom(ctx, "room-1"); !errors.Is(err, ErrResourceInUse) {
		t.Fatalf("expected ErrResourceInUse, got %v", err)
	}
	if err := fx.store.SetBedOccupancy(ctx, "bed-1", 0); err != nil {
		t.Fatalf("SetBedOccupancy failed: %v", err)
	}
	result, err := fx.facade.ReconcileOccupancy(ctx)
	if err != nil {
		t.Fatalf("ReconcileOccupancy returned error: %v", err)
	}
	if result.BedsCorrected != 1 {
		t.Fatalf("expected one corrected bed, got %+v", result)
	}
	if _, err := fx.facade.ReleaseBed(ctx, assignment.ID); err != nil {
		t.Fatalf("ReleaseBed returned error: %v", err)
	}
	if err := fx.facade.DeactivateBed(ctx, "bed-1"); err != nil {
		t.Fatalf("DeactivateBed returned error: %v", err)
	}

	names := fx.publisher.names()
	want := []string{events.BedAssigned, events.OccupancyReconciled, events.BedReleased, events.ResourceDeactivated}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], names[i])
		}
	}
	if fx.publisher.events[3].Attributes["kind"] != "bed" {
		t.Fatalf("expected kind attribute, got %v", fx.publisher.events[3].Attributes)
	}
}

func TestFacade_DefaultsToNoopCollaborators(t *testing.T) {
	t.Parallel()

	store := memory.New()
	mustGuest(t, store, "guest-1", true)
	mustRoom(t, store, "room-1", true)
	mustBed(t, store, "room-1", "bed-1", 1, true)

	facade := NewFacade(FacadeConfig{Store: store, IDGenerator: sequentialIDs("id"), Logger: quietLogger()})
	if _, err := facade.AssignBed(context.Background(), AssignBedParams{GuestID: "guest-1", BedID: "bed-1"}); err != nil {
		t.Fatalf("AssignBed returned error: %v", err)
	}
	camp, err := facade.EnsureCamp(context.Background(), "Surf Camp", "Europe/Lisbon")
	if err != nil {
		t.Fatalf("EnsureCamp returned error: %v", err)
	}
	if camp.Name != "Surf Camp" {
		t.Fatalf("unexpected camp: %+v", camp)
	}
}
